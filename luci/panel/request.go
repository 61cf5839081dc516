package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"luciPanel/luci/logger/initLogs"
)

// DefaultTimeout таймаут запроса, если RequestOptions.Timeout не задан
const DefaultTimeout = 5 * time.Second

// RequestOptions описывает один запрос к панели
type RequestOptions struct {
	// Path путь относительно /cgi-bin/luci, например "/admin/services/shadowsocksr"
	Path string
	// Method HTTP-метод, по умолчанию GET
	Method string
	// Params query для GET, тело формы для POST
	Params url.Values
	// NoRedirect отключает переход по редиректам: панель отправляет
	// неавторизованные запросы на страницу входа, и сырой ответ нужен как есть
	NoRedirect bool
	// Timeout таймаут одной попытки
	Timeout time.Duration
}

// Request выполняет запрос с текущим токеном. На 403 выполняется ровно один
// повторный вход и один повтор запроса (кроме пути выхода).
func (cm *ConfigManager) Request(ctx context.Context, opts RequestOptions) (string, error) {
	body, err := cm.do(ctx, opts)
	if err == nil || opts.Path == LogoutPath {
		return body, err
	}

	var failed *RequestFailedError
	if !errors.As(err, &failed) || failed.Code != http.StatusForbidden {
		return body, err
	}

	// Сессия на стороне панели истекла, входим заново и повторяем
	initLogs.LogInfo("Сессия истекла (403 на %s), выполняем повторный вход", opts.Path)
	if err := cm.Login(ctx); err != nil {
		return "", err
	}
	return cm.do(ctx, opts)
}

// RequestJSON выполняет Request и декодирует JSON-ответ в out
func (cm *ConfigManager) RequestJSON(ctx context.Context, opts RequestOptions, out any) error {
	body, err := cm.Request(ctx, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON %s: %w", opts.Path, err)
	}
	return nil
}

// do выполняет одну попытку запроса без повторов
func (cm *ConfigManager) do(ctx context.Context, opts RequestOptions) (string, error) {
	host, _, _, token, _ := cm.snapshot()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Параметры GET уходят в query, остальные в тело формы
	target := panelURL(host, opts.Path)
	var payload io.Reader
	if len(opts.Params) > 0 {
		if method == http.MethodGet || method == http.MethodHead {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + opts.Params.Encode()
		} else {
			payload = strings.NewReader(opts.Params.Encode())
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса %s: %w", opts.Path, err)
	}
	req.Header.Set("Cookie", SessionCookieName+"="+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	client := cm.client
	if opts.NoRedirect {
		client = cm.noRedirect
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ошибка выполнения запроса %s: %w", opts.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа %s: %w", opts.Path, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusMovedPermanently, http.StatusFound:
		return string(body), nil
	}
	return "", &RequestFailedError{Code: resp.StatusCode, Body: string(body)}
}
