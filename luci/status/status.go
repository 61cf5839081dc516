package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"luciPanel/luci/panel"
)

// Status снимок живых счётчиков устройства (GET /?status=1)
type Status struct {
	Memcached string    `json:"memcached"`
	Swap      Swap      `json:"swap"`
	Ethinfo   string    `json:"ethinfo"`
	Userinfo  string    `json:"userinfo"`
	ConnCount int       `json:"conncount"`
	ConnMax   int       `json:"connmax"`
	Memory    Memory    `json:"memory"`
	Uptime    int       `json:"uptime"`
	CPUInfo   string    `json:"cpuinfo"`
	WAN       *WAN      `json:"wan,omitempty"`
	LocalTime string    `json:"localtime"`
	CPUUsage  string    `json:"cpuusage"`
	LoadAvg   []int     `json:"loadavg"`
	Leases    []Lease   `json:"leases,omitempty"`
	WifiNets  []WifiNet `json:"wifinets,omitempty"`
}

// Memory разбивка памяти в байтах
type Memory struct {
	Total     int64 `json:"total"`
	Shared    int64 `json:"shared"`
	Free      int64 `json:"free"`
	Cached    int64 `json:"cached"`
	Available int64 `json:"available"`
	Buffered  int64 `json:"buffered"`
}

// Swap файл подкачки в байтах
type Swap struct {
	Free  int64 `json:"free"`
	Total int64 `json:"total"`
}

// WAN сведения о WAN-интерфейсе
type WAN struct {
	Proto   string   `json:"proto"`
	IPAddr  string   `json:"ipaddr"`
	Link    string   `json:"link"`
	Netmask string   `json:"netmask"`
	GWAddr  string   `json:"gwaddr"`
	Expires int      `json:"expires"`
	Uptime  int      `json:"uptime"`
	Ifname  string   `json:"ifname"`
	DNS     []string `json:"dns"`
}

// Lease аренда DHCP
type Lease struct {
	Expires int    `json:"expires"`
	MACAddr string `json:"macaddr"`
	IPAddr  string `json:"ipaddr"`
	// Hostname приходит строкой либо false, если имя неизвестно
	Hostname StringOrBool `json:"hostname"`
}

// WifiNet радиоустройство и его сети
type WifiNet struct {
	Device   string        `json:"device"`
	Name     string        `json:"name"`
	Up       bool          `json:"up"`
	Networks []WifiNetwork `json:"networks"`
}

// WifiNetwork одна беспроводная сеть
type WifiNetwork struct {
	Signal     int         `json:"signal"`
	Noise      int         `json:"noise"`
	Quality    int         `json:"quality"`
	Link       string      `json:"link"`
	SSID       string      `json:"ssid"`
	Mode       string      `json:"mode"`
	Channel    int         `json:"channel"`
	Frequency  json.Number `json:"frequency"`
	Bitrate    int         `json:"bitrate"`
	BSSID      string      `json:"bssid"`
	Encryption string      `json:"encryption"`
	Disabled   bool        `json:"disabled"`
}

// StringOrBool хранит значение, которое панель отдаёт то строкой, то булевым
type StringOrBool struct {
	Str      string
	Bool     bool
	IsString bool
}

func (v *StringOrBool) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringOrBool{Str: s, IsString: true}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = StringOrBool{Bool: b}
		return nil
	}
	return fmt.Errorf("значение %s не является ни строкой, ни булевым", data)
}

func (v StringOrBool) MarshalJSON() ([]byte, error) {
	if v.IsString {
		return json.Marshal(v.Str)
	}
	return json.Marshal(v.Bool)
}

// String возвращает строковое значение; для булевого пустую строку
func (v StringOrBool) String() string {
	if v.IsString {
		return v.Str
	}
	return ""
}

// GetStatus запрашивает текущие счётчики. Перед этим StaticStatus
// подгружается в кэш сессии, если его там ещё нет.
func GetStatus(ctx context.Context, cm *panel.ConfigManager) (*Status, error) {
	if _, err := GetStaticStatus(ctx, cm); err != nil {
		return nil, err
	}

	var s Status
	opts := panel.RequestOptions{Path: "/", Params: url.Values{"status": {"1"}}}
	if err := cm.RequestJSON(ctx, opts, &s); err != nil {
		return nil, fmt.Errorf("ошибка получения статуса: %w", err)
	}
	return &s, nil
}

// MemcachedBytes разбирает поле memcached (число с пробелами по краям)
func (s *Status) MemcachedBytes() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s.Memcached), 10, 64)
}

// LoadAverage форматирует три значения loadavg через запятую
func (s *Status) LoadAverage() string {
	parts := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		raw := 0
		if i < len(s.LoadAvg) {
			raw = s.LoadAvg[i]
		}
		parts = append(parts, FormatLoad(raw))
	}
	return strings.Join(parts, ", ")
}
