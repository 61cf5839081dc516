package status

import (
	"fmt"
	"strings"
)

// loadScale множитель фиксированной точки loadavg в ядре Linux
const loadScale = 65535.0

// FormatLoad переводит сырое значение loadavg в строку с двумя знаками
func FormatLoad(raw int) string {
	return fmt.Sprintf("%.2f", float64(raw)/loadScale)
}

// FormatUptime форматирует секунды как "1d 2h 3m 4s", пропуская нулевые единицы
func FormatUptime(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	units := []struct {
		size   int
		suffix string
	}{
		{86400, "d"},
		{3600, "h"},
		{60, "m"},
		{1, "s"},
	}
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if n := seconds / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			seconds %= u.size
		}
	}
	return strings.Join(parts, " ")
}

// FormatBytes форматирует размер в двоичных единицах
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
