package panel

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// maskRune заменяет скрытые символы пароля
	maskRune = "•"
	// previewSize длина превью тела ответа в тексте ошибки
	previewSize = 30
)

// AuthenticationError вход выполнен, но панель не вернула куку sysauth
// (неверные учётные данные) либо сам запрос не удался
type AuthenticationError struct {
	Host       string
	User       string
	MaskedPass string
	// Err исходная сетевая ошибка, если она была
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("login failed (host: %s, user: %s, pass: %s)", e.Host, e.User, e.MaskedPass)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// RequestFailedError панель ответила статусом, отличным от 200/204/301/302
type RequestFailedError struct {
	Code int
	// Body полное тело ответа; в Error() попадает только превью
	Body string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("responded %d with %s", e.Code, e.Preview())
}

// Preview возвращает укороченное тело ответа без переводов строк
func (e *RequestFailedError) Preview() string {
	text := strings.ReplaceAll(e.Body, "\n", " ")
	if utf8.RuneCountInString(text) > previewSize {
		return string([]rune(text)[:previewSize]) + "…"
	}
	return text
}

// MalformedResponseError в HTML нет обязательного элемента (form, fieldset)
type MalformedResponseError struct {
	What string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s", e.What)
}

// MaskPassword оставляет видимыми только последние 3 символа пароля
func MaskPassword(pass string) string {
	runes := []rune(pass)
	hidden := len(runes) - 3
	if hidden < 0 {
		hidden = 0
	}
	return strings.Repeat(maskRune, hidden) + string(runes[hidden:])
}
