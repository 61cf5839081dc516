// Пакет panel: вход и выход из панели LuCI.
// Login выполняет авторизацию и сохраняет куку sysauth в ConfigManager.
package panel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"luciPanel/luci/logger/initLogs"
)

const (
	// LoginPath корень панели, принимает форму входа
	LoginPath = "/"
	// LogoutPath путь выхода; на нём повторный вход не выполняется
	LogoutPath = "/admin/logout"
	// SessionCookieName имя сессионной куки LuCI
	SessionCookieName = "sysauth"
	// LoginTimeout таймаут запроса входа
	LoginTimeout = 3 * time.Second
)

// panelURL строит полный адрес страницы панели
func panelURL(host, path string) string {
	return fmt.Sprintf("http://%s/cgi-bin/luci%s", host, path)
}

// Login авторизует ConfigManager в панели и сохраняет токен
func (cm *ConfigManager) Login(ctx context.Context) error {
	host, user, pass, _, generation := cm.snapshot()
	authErr := func(err error) error {
		return &AuthenticationError{Host: host, User: user, MaskedPass: MaskPassword(pass), Err: err}
	}

	// Формируем тело формы входа
	form := url.Values{}
	form.Set("luci_username", user)
	form.Set("luci_password", pass)

	ctx, cancel := context.WithTimeout(ctx, LoginTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, panelURL(host, LoginPath), strings.NewReader(form.Encode()))
	if err != nil {
		return authErr(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Редиректы не выполняем: кука приходит вместе с 302
	resp, err := cm.noRedirect.Do(req)
	if err != nil {
		initLogs.LogError("Ошибка выполнения запроса входа на %s: %v", host, err)
		return authErr(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Извлекаем сессионную куку
	for _, cookie := range resp.Cookies() {
		if cookie.Name != SessionCookieName || cookie.Value == "" {
			continue
		}
		cm.mu.Lock()
		stored := cm.generation == generation
		if stored {
			cm.token = cookie.Value
		}
		cm.mu.Unlock()

		if !stored {
			initLogs.LogWarning("Учётные данные изменились во время входа на %s, токен отброшен", host)
			return nil
		}
		initLogs.LogAction("ВХОД", host, user)
		return nil
	}

	// Куки нет: неверный логин или пароль
	initLogs.LogWarning("Панель %s не вернула куку %s (пользователь: %s, пароль: %s)", host, SessionCookieName, user, MaskPassword(pass))
	return authErr(nil)
}

// EnsureLogin выполняет вход, только если токена ещё нет
func (cm *ConfigManager) EnsureLogin(ctx context.Context) error {
	if cm.Authenticated() {
		return nil
	}
	return cm.Login(ctx)
}

// Logout завершает сессию. Вызывающие трактуют ошибку как несущественную.
func (cm *ConfigManager) Logout(ctx context.Context) error {
	_, _, _, _, generation := cm.snapshot()
	_, err := cm.Request(ctx, RequestOptions{Path: LogoutPath, NoRedirect: true})

	cm.mu.Lock()
	if cm.generation == generation {
		cm.token = ""
	}
	host, user := cm.host, cm.user
	cm.mu.Unlock()

	if err != nil {
		initLogs.LogWarning("Выход из панели %s не удался: %v", host, err)
		return err
	}
	initLogs.LogAction("ВЫХОД", host, user)
	return nil
}
