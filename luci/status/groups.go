package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"luciPanel/luci/panel"
)

// StatusGroup именованная группа строк статуса для отображения
type StatusGroup struct {
	ID    uuid.UUID
	Name  string
	Items []StatusItem
}

// StatusItem пара ключ/значение
type StatusItem struct {
	ID    uuid.UUID
	Key   string
	Value string
}

func item(key, value string) StatusItem {
	return StatusItem{ID: uuid.New(), Key: key, Value: value}
}

// GetStatusGroups собирает StaticStatus и Status в группы для вывода
func GetStatusGroups(ctx context.Context, cm *panel.ConfigManager) ([]StatusGroup, error) {
	static, err := GetStaticStatus(ctx, cm)
	if err != nil {
		return nil, err
	}
	s, err := GetStatus(ctx, cm)
	if err != nil {
		return nil, err
	}
	return BuildGroups(static, s), nil
}

// BuildGroups раскладывает статус по группам System, Memory и Network
func BuildGroups(static panel.StaticStatus, s *Status) []StatusGroup {
	groups := []StatusGroup{
		{
			ID:   uuid.New(),
			Name: "System",
			Items: []StatusItem{
				item("Hostname", static.Hostname),
				item("Model", static.Model),
				item("Architecture", s.CPUInfo),
				item("Firmware Version", static.FirmwareVersion),
				item("Kernel Version", static.KernelVersion),
				item("Local Time", s.LocalTime),
				item("Uptime", FormatUptime(s.Uptime)),
				item("Load Average", s.LoadAverage()),
				item("CPU usage (%)", s.CPUUsage),
			},
		},
		{
			ID:   uuid.New(),
			Name: "Memory",
			Items: []StatusItem{
				item("Total Available", FormatBytes(s.Memory.Available)),
				item("Free", FormatBytes(s.Memory.Free)),
				item("Buffered", FormatBytes(s.Memory.Buffered)),
				item("Cached", FormatBytes(s.Memory.Cached)),
				item("Swap", fmt.Sprintf("%s / %s", FormatBytes(s.Swap.Free), FormatBytes(s.Swap.Total))),
			},
		},
	}

	network := StatusGroup{
		ID:   uuid.New(),
		Name: "Network",
		Items: []StatusItem{
			item("Active Connections", fmt.Sprintf("%d / %d", s.ConnCount, s.ConnMax)),
		},
	}
	if s.WAN != nil {
		network.Items = append(network.Items,
			item("Protocol", s.WAN.Proto),
			item("Address", s.WAN.IPAddr),
			item("Gateway", s.WAN.GWAddr),
			item("DNS", strings.Join(s.WAN.DNS, ", ")),
		)
		if s.WAN.Expires > 0 {
			network.Items = append(network.Items, item("Expires", FormatUptime(s.WAN.Expires)))
		}
		network.Items = append(network.Items, item("Connected", FormatUptime(s.WAN.Uptime)))
	}
	groups = append(groups, network)

	if len(s.Leases) > 0 {
		leases := StatusGroup{ID: uuid.New(), Name: "DHCP Leases"}
		for _, l := range s.Leases {
			name := l.Hostname.String()
			if name == "" {
				name = "?"
			}
			leases.Items = append(leases.Items, item(name, fmt.Sprintf("%s (%s)", l.IPAddr, l.MACAddr)))
		}
		groups = append(groups, leases)
	}

	if len(s.WifiNets) > 0 {
		wifi := StatusGroup{ID: uuid.New(), Name: "Wireless"}
		for _, dev := range s.WifiNets {
			for _, n := range dev.Networks {
				state := fmt.Sprintf("%s, ch %d, %d dBm", n.Mode, n.Channel, n.Signal)
				if n.Disabled || !dev.Up {
					state = "disabled"
				}
				wifi.Items = append(wifi.Items, item(n.SSID, state))
			}
		}
		groups = append(groups, wifi)
	}

	return groups
}
