package ssr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"luciPanel/luci/logger/initLogs"
	"luciPanel/luci/panel"
)

const (
	// RestartPath перезапуск сервиса shadowsocksr
	RestartPath = "/servicectl/restart/shadowsocksr"
	// RunPath состояние сервиса
	RunPath = "/admin/services/shadowsocksr/run"
)

// runResponse ответ RunPath
type runResponse struct {
	Running bool `json:"running"`
}

// Restart перезапускает сервис; token берётся из скрытых полей формы настроек.
// Возвращает true, если панель ответила "OK".
func Restart(ctx context.Context, cm *panel.ConfigManager, token string) (bool, error) {
	body, err := cm.Request(ctx, panel.RequestOptions{
		Path:   RestartPath,
		Method: http.MethodPost,
		Params: url.Values{"token": {token}},
	})
	if err != nil {
		return false, fmt.Errorf("ошибка перезапуска ShadowSocksR: %w", err)
	}

	ok := strings.TrimSpace(body) == "OK"
	if ok {
		initLogs.LogAction("ПЕРЕЗАПУСК shadowsocksr", cm.Host(), cm.User())
	} else {
		initLogs.LogWarning("Перезапуск ShadowSocksR: неожиданный ответ %q", body)
	}
	return ok, nil
}

// IsRunning сообщает, запущен ли сервис
func IsRunning(ctx context.Context, cm *panel.ConfigManager) (bool, error) {
	var resp runResponse
	if err := cm.RequestJSON(ctx, panel.RequestOptions{Path: RunPath}, &resp); err != nil {
		return false, fmt.Errorf("ошибка проверки состояния ShadowSocksR: %w", err)
	}
	return resp.Running, nil
}
