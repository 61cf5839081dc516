package flags

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// FlagsConfig команды командной строки
type FlagsConfig struct {
	StatusFlag   bool
	WatchFlag    bool
	SettingsFlag bool
	RestartFlag  bool
	ServersFlag  bool
	PingFlag     bool
	IPInfoFlag   bool
	// Selections пары "имя настройки=индекс варианта" из -select
	Selections []Selection
}

// Selection выбор варианта настройки ShadowSocksR
type Selection struct {
	Name   string
	Option int
}

// selectionList реализует flag.Value для повторяемого -select
type selectionList []Selection

func (s *selectionList) String() string {
	parts := make([]string, 0, len(*s))
	for _, sel := range *s {
		parts = append(parts, fmt.Sprintf("%s=%d", sel.Name, sel.Option))
	}
	return strings.Join(parts, ",")
}

func (s *selectionList) Set(v string) error {
	sel, err := ParseSelection(v)
	if err != nil {
		return err
	}
	*s = append(*s, sel)
	return nil
}

// ParseSelection разбирает строку вида "cbid.shadowsocksr.cfg.global_server=2"
func ParseSelection(v string) (Selection, error) {
	name, idx, ok := strings.Cut(v, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Selection{}, fmt.Errorf("ожидается имя=индекс, получено %q", v)
	}
	option, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil || option < 0 {
		return Selection{}, fmt.Errorf("индекс варианта должен быть неотрицательным числом: %q", idx)
	}
	return Selection{Name: name, Option: option}, nil
}

// Flags создает флаги для запуска программы
func Flags() *FlagsConfig {
	cfg, selections := register(flag.CommandLine)
	flag.Parse()
	return finalize(cfg, *selections)
}

// ParseArgs разбирает произвольный список аргументов
func ParseArgs(args []string) (*FlagsConfig, error) {
	fs := flag.NewFlagSet("luci", flag.ContinueOnError)
	cfg, selections := register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return finalize(cfg, *selections), nil
}

func register(fs *flag.FlagSet) (*FlagsConfig, *selectionList) {
	cfg := &FlagsConfig{}
	selections := &selectionList{}

	fs.BoolVar(&cfg.StatusFlag, "status", false, "Показать статус роутера")
	fs.BoolVar(&cfg.WatchFlag, "watch", false, "Периодически обновлять статус до Ctrl+C")
	fs.BoolVar(&cfg.SettingsFlag, "settings", false, "Показать настройки ShadowSocksR")
	fs.Var(selections, "select", "Выбрать вариант настройки: имя=индекс (можно повторять)")
	fs.BoolVar(&cfg.RestartFlag, "restart", false, "Перезапустить ShadowSocksR")
	fs.BoolVar(&cfg.ServersFlag, "servers", false, "Показать серверы ShadowSocksR")
	fs.BoolVar(&cfg.PingFlag, "ping", false, "Проверить доступность всех серверов")
	fs.BoolVar(&cfg.IPInfoFlag, "ipinfo", false, "Показать внешний IP и геолокацию")
	return cfg, selections
}

func finalize(cfg *FlagsConfig, selections selectionList) *FlagsConfig {
	cfg.Selections = selections
	// Без команд показываем статус
	if !cfg.StatusFlag && !cfg.WatchFlag && !cfg.SettingsFlag && len(cfg.Selections) == 0 &&
		!cfg.RestartFlag && !cfg.ServersFlag && !cfg.PingFlag && !cfg.IPInfoFlag {
		cfg.StatusFlag = true
	}
	return cfg
}
