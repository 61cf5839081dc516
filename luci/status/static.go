// Пакет status: сведения об устройстве со страницы статуса LuCI.
package status

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"luciPanel/luci/panel"
)

// Позиции ячеек первого fieldset страницы статуса
const (
	hostnameCell = 1
	modelCell    = 3
	firmwareCell = 7
	kernelCell   = 9
)

var spaces = regexp.MustCompile(`\s+`)

// GetStaticStatus возвращает StaticStatus из кэша сессии или запрашивает его
func GetStaticStatus(ctx context.Context, cm *panel.ConfigManager) (panel.StaticStatus, error) {
	cached, generation := cm.CachedStaticStatus()
	if cached != nil {
		return *cached, nil
	}

	body, err := cm.Request(ctx, panel.RequestOptions{Path: "/", NoRedirect: true})
	if err != nil {
		return panel.StaticStatus{}, fmt.Errorf("ошибка получения страницы статуса: %w", err)
	}

	s, err := ParseStaticStatus(body)
	if err != nil {
		return panel.StaticStatus{}, err
	}
	cm.StoreStaticStatus(generation, s)
	return s, nil
}

// ParseStaticStatus разбирает первый fieldset страницы статуса
func ParseStaticStatus(html string) (panel.StaticStatus, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return panel.StaticStatus{}, fmt.Errorf("ошибка разбора HTML: %w", err)
	}

	fieldset := doc.Find("fieldset").First()
	if fieldset.Length() == 0 {
		return panel.StaticStatus{}, &panel.MalformedResponseError{What: "fieldset not found"}
	}

	tds := fieldset.Find("td")
	if tds.Length() <= kernelCell {
		return panel.StaticStatus{}, &panel.MalformedResponseError{
			What: fmt.Sprintf("fieldset has %d cells, need %d", tds.Length(), kernelCell+1),
		}
	}

	cell := func(i int) string {
		return removeSpaces(tds.Eq(i).Text())
	}
	return panel.StaticStatus{
		Hostname:        cell(hostnameCell),
		Model:           cell(modelCell),
		FirmwareVersion: cell(firmwareCell),
		KernelVersion:   cell(kernelCell),
	}, nil
}

func removeSpaces(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
