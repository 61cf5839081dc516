// Пакет monitor: периодическое обновление статуса роутера.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"luciPanel/luci/logger/initLogs"
	"luciPanel/luci/panel"
	"luciPanel/luci/status"
)

// StatusMonitor периодически запрашивает статус и логирует сводку
type StatusMonitor struct {
	ConfigManager *panel.ConfigManager
	CheckInterval time.Duration
	// OnStatus вызывается после каждого успешного обновления
	OnStatus func(*status.Status)

	mu       sync.Mutex
	running  bool
	stopChan chan bool
	done     chan struct{}
}

// NewStatusMonitor создает монитор статуса
func NewStatusMonitor(cm *panel.ConfigManager, checkInterval time.Duration) *StatusMonitor {
	return &StatusMonitor{
		ConfigManager: cm,
		CheckInterval: checkInterval,
	}
}

// Start запускает мониторинг; первая проверка выполняется сразу
func (s *StatusMonitor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("монитор уже запущен")
	}
	if s.CheckInterval <= 0 {
		return fmt.Errorf("интервал проверки должен быть > 0")
	}

	s.running = true
	s.stopChan = make(chan bool, 1)
	s.done = make(chan struct{})
	initLogs.LogInfo("Запуск мониторинга %s, интервал %v", s.ConfigManager.Host(), s.CheckInterval)

	go s.monitorLoop(ctx, s.stopChan, s.done)
	return nil
}

// Stop останавливает мониторинг и ждёт завершения цикла
func (s *StatusMonitor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	stop <- true
	<-done
}

// Running сообщает, запущен ли монитор
func (s *StatusMonitor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// monitorLoop основной цикл мониторинга
func (s *StatusMonitor) monitorLoop(ctx context.Context, stop chan bool, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.CheckInterval)
	defer ticker.Stop()

	s.performCheck(ctx)
	for {
		select {
		case <-ticker.C:
			s.performCheck(ctx)
		case <-stop:
			initLogs.LogInfo("Мониторинг остановлен")
			return
		case <-ctx.Done():
			initLogs.LogInfo("Мониторинг прерван: %v", ctx.Err())
			s.mu.Lock()
			if s.done == done {
				s.running = false
			}
			s.mu.Unlock()
			return
		}
	}
}

// performCheck получает статус и пишет однострочную сводку
func (s *StatusMonitor) performCheck(ctx context.Context) {
	st, err := status.GetStatus(ctx, s.ConfigManager)
	if err != nil {
		initLogs.LogError("Ошибка получения статуса: %v", err)
		return
	}

	initLogs.LogInfo("%s", Summary(st))
	if s.OnStatus != nil {
		s.OnStatus(st)
	}
}

// Summary однострочная сводка статуса
func Summary(st *status.Status) string {
	parts := []string{
		"uptime " + status.FormatUptime(st.Uptime),
		"load " + st.LoadAverage(),
		fmt.Sprintf("mem free %s/%s", status.FormatBytes(st.Memory.Free), status.FormatBytes(st.Memory.Total)),
		fmt.Sprintf("conn %d/%d", st.ConnCount, st.ConnMax),
	}
	if st.CPUUsage != "" {
		parts = append(parts, "cpu "+st.CPUUsage)
	}
	if st.WAN != nil && st.WAN.IPAddr != "" {
		parts = append(parts, "wan "+st.WAN.IPAddr)
	}
	return strings.Join(parts, ", ")
}
