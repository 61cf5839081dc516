// Пакет ipinfo: внешний IP и геолокация через api.ipgeolocation.io.
// Бесплатный тариф: 1K запросов в день или 30K в месяц.
package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"luciPanel/luci/panel"
)

const (
	// DefaultBaseURL адрес сервиса геолокации
	DefaultBaseURL = "https://api.ipgeolocation.io/ipgeo"
	// DefaultTimeout таймаут запроса
	DefaultTimeout = 5 * time.Second
)

// Client клиент api.ipgeolocation.io
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient создает клиент с ключом API
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// Info сведения об IP для вывода
type Info struct {
	IPAddress string    `json:"ipAddress,omitempty"`
	Location  string    `json:"location,omitempty"`
	OrgName   string    `json:"orgName,omitempty"`
	ISPName   string    `json:"ispName,omitempty"`
	Latitude  string    `json:"latitude,omitempty"`
	Longitude string    `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Response ответ api.ipgeolocation.io
type Response struct {
	IP             string    `json:"ip"`
	ContinentCode  string    `json:"continent_code"`
	ContinentName  string    `json:"continent_name"`
	CountryCode2   string    `json:"country_code2"`
	CountryCode3   string    `json:"country_code3"`
	CountryName    string    `json:"country_name"`
	CountryCapital string    `json:"country_capital"`
	StateProv      string    `json:"state_prov"`
	District       string    `json:"district"`
	City           string    `json:"city"`
	Zipcode        string    `json:"zipcode"`
	Latitude       string    `json:"latitude"`
	Longitude      string    `json:"longitude"`
	IsEU           bool      `json:"is_eu"`
	CallingCode    string    `json:"calling_code"`
	CountryTLD     string    `json:"country_tld"`
	Languages      string    `json:"languages"`
	CountryFlag    string    `json:"country_flag"`
	GeonameID      string    `json:"geoname_id"`
	ISP            string    `json:"isp"`
	ConnectionType string    `json:"connection_type"`
	Organization   string    `json:"organization"`
	Currency       *Currency `json:"currency,omitempty"`
	TimeZone       *TimeZone `json:"time_zone,omitempty"`
}

// Currency валюта страны
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// TimeZone часовой пояс
type TimeZone struct {
	Name            string  `json:"name"`
	Offset          int     `json:"offset"`
	CurrentTime     string  `json:"current_time"`
	CurrentTimeUnix float64 `json:"current_time_unix"`
	IsDST           bool    `json:"is_dst"`
	DSTSavings      int     `json:"dst_savings"`
}

// errorResponse тело ошибки сервиса
type errorResponse struct {
	Message string `json:"message"`
}

// Get запрашивает сведения о текущем внешнем IP.
// Ошибки сервиса возвращаются как *panel.RequestFailedError с текстом message.
func (c *Client) Get(ctx context.Context) (*Response, error) {
	endpoint := c.BaseURL + "?" + url.Values{"apiKey": {c.APIKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := string(body)
		if len(body) > 0 {
			var e errorResponse
			if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
				message = e.Message
			}
		}
		return nil, &panel.RequestFailedError{Code: resp.StatusCode, Body: message}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON: %w", err)
	}
	return &out, nil
}

// ToIPInfo сводит ответ к Info; now: момент получения
func (r *Response) ToIPInfo(now time.Time) Info {
	return Info{
		IPAddress: r.IP,
		Location:  location(r.City, r.CountryName),
		OrgName:   r.Organization,
		ISPName:   r.ISP,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		CreatedAt: now.Round(time.Second),
	}
}

func location(city, country string) string {
	switch {
	case city == "" && country == "":
		return "?"
	case country == "":
		return city
	case city == "":
		return country
	}
	return city + ", " + country
}
