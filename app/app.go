package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"luciPanel/flags"
	"luciPanel/luci/ipinfo"
	"luciPanel/luci/logger/initLogs"
	"luciPanel/luci/monitor"
	"luciPanel/luci/panel"
	"luciPanel/luci/panel/env"
	"luciPanel/luci/ssr"
	"luciPanel/luci/status"
)

// Run загружает конфигурацию, входит в панель и выполняет команды
func Run(cfg *flags.FlagsConfig) {
	conf := env.MustLoad()

	if err := initLogs.InitLuCILogger(conf.LogPath); err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}

	// Ctrl+C отменяет текущие запросы, в том числе проверку серверов
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cm := panel.NewConfigManager(conf.Host, conf.User, conf.Pass)
	if err := cm.EnsureLogin(ctx); err != nil {
		initLogs.LogError("%v", err)
		return
	}
	defer func() {
		// Выход из сессии необязателен, ошибку только логирует Logout
		logoutCtx, cancel := context.WithTimeout(context.Background(), panel.LoginTimeout)
		defer cancel()
		_ = cm.Logout(logoutCtx)
	}()

	if err := Execute(ctx, cm, conf, cfg, os.Stdout); err != nil {
		initLogs.LogError("%v", err)
	}
}

// Execute выполняет выбранные команды над уже созданным клиентом
func Execute(ctx context.Context, cm *panel.ConfigManager, conf env.Config, cfg *flags.FlagsConfig, out io.Writer) error {
	if cfg.StatusFlag {
		if err := printStatus(ctx, cm, out); err != nil {
			return err
		}
	}

	if cfg.SettingsFlag || len(cfg.Selections) > 0 || cfg.RestartFlag {
		settings, err := applySettings(ctx, cm, cfg.Selections)
		if err != nil {
			return err
		}
		if cfg.SettingsFlag || len(cfg.Selections) > 0 {
			printSettings(out, settings)
		}
		if cfg.RestartFlag {
			ok, err := ssr.Restart(ctx, cm, settings.Token())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "restart shadowsocksr: %v\n", ok)
		}
	}

	if cfg.ServersFlag || cfg.PingFlag {
		if err := printServers(ctx, cm, cfg.PingFlag, out); err != nil {
			return err
		}
	}

	if cfg.IPInfoFlag {
		if err := printIPInfo(ctx, conf.IPGeoAPIKey, out); err != nil {
			return err
		}
	}

	if cfg.WatchFlag {
		m := monitor.NewStatusMonitor(cm, conf.MonitorInterval)
		if err := m.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		m.Stop()
	}
	return nil
}

func printStatus(ctx context.Context, cm *panel.ConfigManager, out io.Writer) error {
	groups, err := status.GetStatusGroups(ctx, cm)
	if err != nil {
		return err
	}
	for _, g := range groups {
		fmt.Fprintf(out, "== %s ==\n", g.Name)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, item := range g.Items {
			fmt.Fprintf(w, "  %s\t%s\n", item.Key, item.Value)
		}
		w.Flush()
	}
	return nil
}

// applySettings загружает настройки и отправляет форму, если выбор изменился
func applySettings(ctx context.Context, cm *panel.ConfigManager, selections []flags.Selection) (*ssr.Settings, error) {
	settings, err := ssr.GetBasicSettings(ctx, cm)
	if err != nil {
		return nil, err
	}

	next := *settings
	for _, sel := range selections {
		if next, err = next.SelectByName(sel.Name, sel.Option); err != nil {
			return nil, err
		}
	}
	if !next.HasChanges() {
		return settings, nil
	}

	initLogs.LogInfo("Сохранение настроек ShadowSocksR (%d изменений)", len(selections))
	return ssr.UpdateSettings(ctx, cm, next)
}

func printSettings(out io.Writer, settings *ssr.Settings) {
	for _, setting := range settings.Settings {
		fmt.Fprintf(out, "%s (%s)\n", setting.Title, setting.Name)
		for i, option := range setting.Options {
			mark := " "
			if i == setting.Selected {
				mark = "*"
			}
			fmt.Fprintf(out, "  %s %d: %s\n", mark, i, option.Title)
		}
	}
}

func printServers(ctx context.Context, cm *panel.ConfigManager, ping bool, out io.Writer) error {
	running, err := ssr.IsRunning(ctx, cm)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "shadowsocksr running: %v\n", running)

	servers, err := ssr.GetServers(ctx, cm)
	if err != nil {
		return err
	}

	results := map[string]ssr.ProbeResult{}
	if ping {
		sweep := ssr.NewSweep(cm)
		sweep.OnResult = func(r ssr.ProbeResult) {
			initLogs.LogInfo("Сервер %s: доступен=%v, %d ms", r.ServerID, r.Reachable, r.Latency)
		}
		results = sweep.Run(ctx, servers)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tADDRESS\tPING")
	for _, node := range ssr.Annotate(servers, results) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s:%s\t%s\n", node.ID, node.Name, node.Type, node.Domain, node.Port, pingText(node.Result))
	}
	return w.Flush()
}

func pingText(r *ssr.ProbeResult) string {
	switch {
	case r == nil:
		return "-"
	case r.Err != nil:
		return "error"
	case !r.Reachable:
		return "unreachable"
	}
	return fmt.Sprintf("%dms", r.Latency)
}

func printIPInfo(ctx context.Context, apiKey string, out io.Writer) error {
	if apiKey == "" {
		return errors.New("IPGEO_API_KEY не задан")
	}
	resp, err := ipinfo.NewClient(apiKey).Get(ctx)
	if err != nil {
		return err
	}
	info := resp.ToIPInfo(time.Now())
	fmt.Fprintf(out, "IP: %s\nLocation: %s\nOrganization: %s\nISP: %s\nCoordinates: %s, %s\n",
		info.IPAddress, info.Location, info.OrgName, info.ISPName, info.Latitude, info.Longitude)
	return nil
}
