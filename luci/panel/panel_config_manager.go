// Пакет panel: ConfigManager управляет HTTP-взаимодействием с LuCI (кука sysauth и HTTP-клиенты).
package panel

import (
	"net/http"
	"sync"
)

// StaticStatus редко меняющиеся сведения об устройстве.
// Запрашиваются один раз за сессию и сбрасываются при смене учётных данных.
type StaticStatus struct {
	Hostname        string
	Model           string
	FirmwareVersion string
	KernelVersion   string
}

// ConfigManager клиент одной учётной записи панели LuCI.
// Безопасен для одновременного использования из нескольких горутин.
type ConfigManager struct {
	mu sync.Mutex

	// host адрес панели без схемы, например "192.168.1.1" или "10.0.0.1:8080"
	host string
	user string
	pass string

	// token значение куки sysauth; пусто, пока не выполнен вход
	token string
	// staticStatus кэш StaticStatus текущей сессии
	staticStatus *StaticStatus
	// generation увеличивается при каждой смене host/user/pass
	generation uint64

	// client следует редиректам, noRedirect не следует
	client     *http.Client
	noRedirect *http.Client
}

// NewConfigManager создает клиент панели без активной сессии
func NewConfigManager(host, user, pass string) *ConfigManager {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &ConfigManager{
		host: host,
		user: user,
		pass: pass,
		client: &http.Client{
			Transport: transport,
		},
		noRedirect: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Configure меняет учётные данные. Если хоть одно поле изменилось,
// токен и кэш StaticStatus сбрасываются; иначе вызов ничего не делает.
func (cm *ConfigManager) Configure(host, user, pass string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.host == host && cm.user == user && cm.pass == pass {
		return
	}
	cm.host = host
	cm.user = user
	cm.pass = pass
	cm.token = ""
	cm.staticStatus = nil
	cm.generation++
}

// Host возвращает текущий адрес панели
func (cm *ConfigManager) Host() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.host
}

// User возвращает текущее имя пользователя
func (cm *ConfigManager) User() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.user
}

// Token возвращает текущее значение sysauth (пусто без сессии)
func (cm *ConfigManager) Token() string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.token
}

// Authenticated сообщает, есть ли у клиента токен
func (cm *ConfigManager) Authenticated() bool {
	return cm.Token() != ""
}

// Generation возвращает номер поколения учётных данных
func (cm *ConfigManager) Generation() uint64 {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.generation
}

// CachedStaticStatus возвращает кэш StaticStatus и поколение, к которому он относится
func (cm *ConfigManager) CachedStaticStatus() (*StaticStatus, uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.staticStatus == nil {
		return nil, cm.generation
	}
	s := *cm.staticStatus
	return &s, cm.generation
}

// StoreStaticStatus сохраняет StaticStatus, если поколение не сменилось с момента запроса
func (cm *ConfigManager) StoreStaticStatus(generation uint64, s StaticStatus) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if generation != cm.generation {
		return false
	}
	cm.staticStatus = &s
	return true
}

// snapshot возвращает согласованный набор полей сессии
func (cm *ConfigManager) snapshot() (host, user, pass, token string, generation uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.host, cm.user, cm.pass, cm.token, cm.generation
}
