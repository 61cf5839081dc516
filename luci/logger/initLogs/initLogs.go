package initLogs

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	// LuCILogger общий логгер клиента панели; nil до вызова InitLuCILogger
	LuCILogger *log.Logger

	mu sync.RWMutex
)

// InitLuCILogger инициализирует логгер клиента.
// Пустой logPath означает вывод только в stdout.
func InitLuCILogger(logPath string) error {
	if logPath == "" {
		setLogger(log.New(os.Stdout, "", log.LstdFlags))
		return nil
	}

	// Создаем директорию для логов, если она не существует
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return err
	}

	// Пишем и в файл, и в stdout
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	setLogger(log.New(multiWriter, "", log.LstdFlags))
	return nil
}

// SetOutput перенаправляет логгер в произвольный writer (используется в тестах)
func SetOutput(w io.Writer) {
	setLogger(log.New(w, "", 0))
}

func setLogger(l *log.Logger) {
	mu.Lock()
	LuCILogger = l
	mu.Unlock()
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return LuCILogger
}

// LogInfo логирует информационное сообщение
func LogInfo(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.Printf("[INFO] "+format, v...)
	} else {
		log.Printf("LUCI [INFO]: "+format, v...)
	}
}

// LogWarning логирует предупреждение
func LogWarning(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.Printf("[WARNING] "+format, v...)
	} else {
		log.Printf("LUCI [WARNING]: "+format, v...)
	}
}

// LogError логирует ошибку
func LogError(format string, v ...interface{}) {
	if l := current(); l != nil {
		l.Printf("[ERROR] "+format, v...)
	} else {
		log.Printf("LUCI [ERROR]: "+format, v...)
	}
}

// LogAction логирует действие над панелью (вход, выход, перезапуск сервиса)
func LogAction(action, host, user string) {
	if l := current(); l != nil {
		l.Printf("[ACTION] %s (хост: %s, пользователь: %s)", action, host, user)
	} else {
		log.Printf("LUCI [ACTION]: %s (хост: %s, пользователь: %s)", action, host, user)
	}
}
