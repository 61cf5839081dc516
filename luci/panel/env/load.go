// Пакет env: загружает параметры подключения к LuCI из переменных окружения.
// Файл .env необязателен; переменные окружения имеют приоритет над ним.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultHost адрес роутера по умолчанию
	DefaultHost = "192.168.1.1"
	// DefaultUser пользователь LuCI по умолчанию
	DefaultUser = "root"
	// DefaultMonitorInterval период обновления статуса в режиме наблюдения
	DefaultMonitorInterval = 5 * time.Second
)

// Config содержит параметры подключения к панели LuCI
type Config struct {
	// Host адрес панели без схемы, например "192.168.1.1"
	Host string
	// User имя пользователя LuCI
	User string
	// Pass пароль пользователя LuCI
	Pass string
	// IPGeoAPIKey ключ api.ipgeolocation.io, пустой отключает запрос
	IPGeoAPIKey string
	// MonitorInterval период обновления статуса
	MonitorInterval time.Duration
	// LogPath файл лога; при пустом значении только stdout
	LogPath string
}

// Load читает .env (если есть) и переменные окружения
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("ошибка загрузки .env файла: %w", err)
	}

	cfg := Config{
		Host:            getOr("LUCI_HOST", DefaultHost),
		User:            getOr("LUCI_USER", DefaultUser),
		Pass:            os.Getenv("LUCI_PASS"),
		IPGeoAPIKey:     strings.TrimSpace(os.Getenv("IPGEO_API_KEY")),
		MonitorInterval: DefaultMonitorInterval,
		LogPath:         strings.TrimSpace(os.Getenv("LUCI_LOG_PATH")),
	}

	// Хост указывается без схемы: клиент сам строит http://<host>/cgi-bin/luci
	cfg.Host = strings.TrimSuffix(strings.TrimPrefix(cfg.Host, "http://"), "/")

	if v := strings.TrimSpace(os.Getenv("LUCI_MONITOR_INTERVAL")); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return Config{}, fmt.Errorf("переменная окружения LUCI_MONITOR_INTERVAL должна быть положительным целым числом, текущее значение: %q", v)
		}
		cfg.MonitorInterval = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

// MustLoad вызывает Load и завершает процесс при ошибке
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	return cfg
}

// getOr возвращает значение переменной окружения или значение по умолчанию
func getOr(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
