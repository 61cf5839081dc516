package ssr

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"luciPanel/luci/logger/initLogs"
	"luciPanel/luci/panel"
)

// DefaultWindow число одновременных проверок
const DefaultWindow = 5

// ProbeFunc проверяет один сервер
type ProbeFunc func(ctx context.Context, server Server) (PingResult, error)

// ProbeResult итог проверки сервера
type ProbeResult struct {
	ServerID  string
	Reachable bool
	// Latency задержка в миллисекундах
	Latency int
	// Err ошибка проверки; такой сервер считается недоступным
	Err error
}

// Sweep проверяет список серверов скользящим окном фиксированного размера:
// как только одна проверка завершается, запускается следующая из очереди.
type Sweep struct {
	Window int
	Probe  ProbeFunc
	// OnResult вызывается в порядке завершения проверок, по одному за раз
	OnResult func(ProbeResult)
}

// NewSweep создает Sweep, проверяющий серверы через панель
func NewSweep(cm *panel.ConfigManager) *Sweep {
	return &Sweep{
		Window: DefaultWindow,
		Probe: func(ctx context.Context, server Server) (PingResult, error) {
			return Ping(ctx, cm, server)
		},
	}
}

// Run проверяет серверы и возвращает результаты по ID сервера.
// После отмены ctx новые проверки не запускаются, а прерванные ничего не записывают.
func (sw *Sweep) Run(ctx context.Context, servers []Server) map[string]ProbeResult {
	results := make(map[string]ProbeResult, len(servers))
	if len(servers) == 0 {
		return results
	}

	window := sw.Window
	if window <= 0 {
		window = DefaultWindow
	}
	if window > len(servers) {
		window = len(servers)
	}

	sweepID := uuid.NewString()
	initLogs.LogInfo("Проверка серверов %s: %d шт., окно %d", sweepID, len(servers), window)

	// Очередь FIFO: каждый воркер берёт следующий сервер, когда освобождается
	queue := make(chan Server, len(servers))
	for _, s := range servers {
		queue <- s
	}
	close(queue)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < window; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for server := range queue {
				if ctx.Err() != nil {
					return
				}

				res, err := sw.Probe(ctx, server)
				if err != nil && ctx.Err() != nil {
					return
				}

				result := ProbeResult{ServerID: server.ID, Reachable: res.Socket, Latency: res.Ping}
				if err != nil {
					result = ProbeResult{ServerID: server.ID, Err: err}
				}

				mu.Lock()
				results[server.ID] = result
				if sw.OnResult != nil {
					sw.OnResult(result)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		initLogs.LogWarning("Проверка серверов %s отменена: готово %d из %d", sweepID, len(results), len(servers))
	} else {
		initLogs.LogInfo("Проверка серверов %s завершена: %d шт.", sweepID, len(results))
	}
	return results
}

// ServerNode сервер с результатом последней проверки (nil, если не проверялся)
type ServerNode struct {
	Server
	Result *ProbeResult
}

// Annotate сопоставляет серверы с результатами проверки
func Annotate(servers []Server, results map[string]ProbeResult) []ServerNode {
	nodes := make([]ServerNode, len(servers))
	for i, s := range servers {
		nodes[i] = ServerNode{Server: s}
		if r, ok := results[s.ID]; ok {
			r := r
			nodes[i].Result = &r
		}
	}
	return nodes
}
