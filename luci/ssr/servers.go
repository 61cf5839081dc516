package ssr

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"luciPanel/luci/panel"
)

const (
	// ServersPath таблица серверов
	ServersPath = "/admin/services/shadowsocksr/servers"
	// PingPath проверка доступности сервера
	PingPath = "/admin/services/shadowsocksr/ping"
	// PingTimeout таймаут одной проверки
	PingTimeout = 10 * time.Second

	// rowIDPrefix префикс id строки таблицы серверов
	rowIDPrefix = "cbi-shadowsocksr-"
)

// Server узел ShadowSocksR из таблицы серверов
type Server struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	Port      string `json:"port"`
	Transport string `json:"transport"`
	WSPath    string `json:"wsPath"`
	TLS       string `json:"tls"`
}

func (s Server) String() string {
	return fmt.Sprintf("%s [%s] %s:%s", s.Name, s.Type, s.Domain, s.Port)
}

// PingResult ответ панели на проверку сервера
type PingResult struct {
	// Ping задержка в миллисекундах
	Ping int `json:"ping"`
	// Socket удалось ли открыть TCP-соединение
	Socket bool `json:"socket"`
}

// GetServers загружает таблицу серверов
func GetServers(ctx context.Context, cm *panel.ConfigManager) ([]Server, error) {
	body, err := cm.Request(ctx, panel.RequestOptions{Path: ServersPath, NoRedirect: true})
	if err != nil {
		return nil, fmt.Errorf("ошибка получения серверов ShadowSocksR: %w", err)
	}
	return ParseServers(body)
}

// ParseServers разбирает строки таблицы серверов.
// Строки без полей type или alias (шаблоны) пропускаются.
func ParseServers(html string) ([]Server, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора HTML: %w", err)
	}

	var servers []Server
	doc.Find(".cbi-section-table-row").Each(func(_ int, row *goquery.Selection) {
		rowID, ok := row.Attr("id")
		if !ok || rowID == "" {
			return
		}

		var typ, name *string
		row.Find("input").Each(func(_ int, input *goquery.Selection) {
			id, ok := input.Attr("id")
			if !ok {
				return
			}
			value := input.AttrOr("value", "")
			switch {
			case strings.HasSuffix(id, ".type"):
				typ = &value
			case strings.HasSuffix(id, ".alias"):
				name = &value
			}
		})
		if typ == nil || name == nil {
			return
		}

		hint := func(class string) string {
			return row.Find(class).First().AttrOr("hint", "")
		}
		servers = append(servers, Server{
			ID:        strings.TrimPrefix(rowID, rowIDPrefix),
			Type:      *typ,
			Name:      *name,
			Domain:    hint(".pingtime"),
			Port:      hint(".socket-connected"),
			Transport: hint(".transport"),
			WSPath:    hint(".wsPath"),
			TLS:       hint(".tls"),
		})
	})
	return servers, nil
}

// Ping проверяет доступность сервера силами роутера
func Ping(ctx context.Context, cm *panel.ConfigManager, server Server) (PingResult, error) {
	params := url.Values{}
	params.Set("domain", server.Domain)
	params.Set("port", server.Port)
	params.Set("transport", server.Transport)
	params.Set("wsPath", server.WSPath)
	params.Set("tls", server.TLS)

	var result PingResult
	opts := panel.RequestOptions{Path: PingPath, Params: params, Timeout: PingTimeout}
	if err := cm.RequestJSON(ctx, opts, &result); err != nil {
		return PingResult{}, fmt.Errorf("ошибка проверки сервера %s: %w", server.ID, err)
	}
	return result, nil
}
