// Пакет ssr: настройки и серверы ShadowSocksR на странице LuCI.
package ssr

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"luciPanel/luci/panel"
)

// SettingsPath страница основных настроек ShadowSocksR
const SettingsPath = "/admin/services/shadowsocksr"

// Option вариант значения настройки
type Option struct {
	Title string
	Value string
}

// Setting одна настройка формы
type Setting struct {
	// Name имя поля формы
	Name string
	// Title подпись настройки
	Title   string
	Options []Option
	// Selected индекс выбранного варианта, -1 если не выбран
	Selected int
}

// Value возвращает значение выбранного варианта
func (s Setting) Value() (string, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Options) {
		return "", false
	}
	return s.Options[s.Selected].Value, true
}

// Settings группа настроек и скрытые поля формы.
// Изменяется только через Select, который возвращает новое значение.
type Settings struct {
	// HiddenFields отправляются обратно без изменений (включая token)
	HiddenFields map[string]string
	Settings     []Setting

	// loaded индексы выбранных вариантов на момент загрузки
	loaded []int
}

// Token возвращает CSRF-токен формы
func (s Settings) Token() string {
	return s.HiddenFields["token"]
}

// Select возвращает независимую копию с выбранным вариантом option у настройки setting
func (s Settings) Select(setting, option int) (Settings, error) {
	if setting < 0 || setting >= len(s.Settings) {
		return s, fmt.Errorf("настройка %d не существует", setting)
	}
	if option < 0 || option >= len(s.Settings[setting].Options) {
		return s, fmt.Errorf("вариант %d настройки %s не существует", option, s.Settings[setting].Name)
	}

	next := Settings{
		HiddenFields: maps.Clone(s.HiddenFields),
		Settings:     slices.Clone(s.Settings),
		loaded:       slices.Clone(s.loaded),
	}
	next.Settings[setting].Selected = option
	return next, nil
}

// SelectByName выбирает вариант по имени настройки
func (s Settings) SelectByName(name string, option int) (Settings, error) {
	for i, setting := range s.Settings {
		if setting.Name == name {
			return s.Select(i, option)
		}
	}
	return s, fmt.Errorf("настройка %s не найдена", name)
}

// HasChanges сравнивает текущий выбор со снимком на момент загрузки
func (s Settings) HasChanges() bool {
	if len(s.loaded) != len(s.Settings) {
		return true
	}
	for i, setting := range s.Settings {
		if setting.Selected != s.loaded[i] {
			return true
		}
	}
	return false
}

// FormValues собирает тело POST: скрытые поля плюс выбранные значения
func (s Settings) FormValues() url.Values {
	form := url.Values{}
	for name, value := range s.HiddenFields {
		form.Set(name, value)
	}
	for _, setting := range s.Settings {
		if value, ok := setting.Value(); ok {
			form.Set(setting.Name, value)
		}
	}
	return form
}

// GetBasicSettings загружает форму основных настроек
func GetBasicSettings(ctx context.Context, cm *panel.ConfigManager) (*Settings, error) {
	body, err := cm.Request(ctx, panel.RequestOptions{Path: SettingsPath, NoRedirect: true})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек ShadowSocksR: %w", err)
	}
	return ParseSettings(body)
}

// UpdateSettings отправляет форму и возвращает перечитанные настройки
func UpdateSettings(ctx context.Context, cm *panel.ConfigManager, s Settings) (*Settings, error) {
	body, err := cm.Request(ctx, panel.RequestOptions{
		Path:       SettingsPath,
		Method:     http.MethodPost,
		Params:     s.FormValues(),
		NoRedirect: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сохранения настроек ShadowSocksR: %w", err)
	}
	return ParseSettings(body)
}

// ParseSettings разбирает форму настроек ShadowSocksR
func ParseSettings(html string) (*Settings, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора HTML: %w", err)
	}

	form := doc.Find("form").First()
	if form.Length() == 0 {
		return nil, &panel.MalformedResponseError{What: "form not found"}
	}

	// Скрытые поля сохраняем как есть
	hidden := make(map[string]string)
	form.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		value, ok := input.Attr("value")
		if !ok {
			return
		}
		hidden[name] = value
	})

	result := &Settings{HiddenFields: hidden}
	form.Find(".cbi-section-node .cbi-value").Each(func(_ int, section *goquery.Selection) {
		setting, ok := parseSection(section)
		if !ok {
			return
		}
		result.Settings = append(result.Settings, setting)
		result.loaded = append(result.loaded, setting.Selected)
	})
	return result, nil
}

// parseSection извлекает настройку из блока .cbi-value.
// Сначала data-choices текстового поля, затем варианты <select>.
func parseSection(section *goquery.Selection) (Setting, bool) {
	title := strings.TrimSpace(section.Find(".cbi-value-title").First().Text())

	if input := section.Find(".cbi-input-text").First(); input.Length() > 0 {
		if setting, ok := parseChoices(input, title); ok {
			return setting, true
		}
	}

	selectNode := section.Find(".cbi-input-select").First()
	items := selectNode.Find("option")
	if items.Length() == 0 {
		return Setting{}, false
	}

	setting := Setting{
		Name:     selectNode.AttrOr("name", ""),
		Title:    title,
		Selected: -1,
	}
	items.Each(func(i int, item *goquery.Selection) {
		setting.Options = append(setting.Options, Option{
			Title: strings.TrimSpace(item.Text()),
			Value: item.AttrOr("value", ""),
		})
		if _, selected := item.Attr("selected"); selected {
			setting.Selected = i
		}
	})
	if setting.Selected == -1 {
		setting.Selected = 0
	}
	return setting, true
}

// parseChoices читает data-choices: JSON [[значения...], [подписи...]]
func parseChoices(input *goquery.Selection, title string) (Setting, bool) {
	raw, ok := input.Attr("data-choices")
	if !ok {
		return Setting{}, false
	}
	var choices [][]string
	if err := json.Unmarshal([]byte(raw), &choices); err != nil || len(choices) < 2 || len(choices[0]) == 0 {
		return Setting{}, false
	}

	values, titles := choices[0], choices[1]
	current := input.AttrOr("value", "")
	setting := Setting{
		Name:     input.AttrOr("name", ""),
		Title:    title,
		Selected: 0,
	}
	matched := false
	for i, value := range values {
		optionTitle := value
		if i < len(titles) {
			optionTitle = titles[i]
		}
		setting.Options = append(setting.Options, Option{Title: optionTitle, Value: value})
		if !matched && value == current {
			setting.Selected = i
			matched = true
		}
	}
	return setting, true
}
