// Package openaq provides a client for the OpenAQ measurements API.
package openaq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/greenroute/greenroute/internal/airquality"
	"github.com/greenroute/greenroute/internal/geo"
	"github.com/greenroute/greenroute/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ API.
	DefaultBaseURL = "https://api.openaq.org/v3"

	// ProviderName identifies this provider.
	ProviderName = "openaq"

	// defaultParameter is the pollutant requested from the feed. PM2.5 is
	// the dominant AQI driver in the service area.
	defaultParameter = "pm25"

	pageLimit = 100
)

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenAQ API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

// NewClient creates a new OpenAQ client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// API response types (from the OpenAQ API).

type measurementsResponse struct {
	Results []measurementData `json:"results"`
}

type measurementData struct {
	LocationID  int64           `json:"locationId"`
	Location    string          `json:"location"`
	Parameter   string          `json:"parameter"`
	Value       float64         `json:"value"`
	Coordinates coordinatesData `json:"coordinates"`
	Date        dateData        `json:"date"`
}

type coordinatesData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type dateData struct {
	UTC string `json:"utc"`
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return ProviderName
}

// Sensors fetches the latest measurements within radiusKm of center and
// converts them to an AQI snapshot. One reading per station: the feed is
// ordered newest first and only the first value per location is kept.
func (c *Client) Sensors(ctx context.Context, center geo.Coordinate, radiusKm float64) (*airquality.Snapshot, error) {
	url := fmt.Sprintf("%s/measurements?coordinates=%.6f,%.6f&radius=%d&parameter=%s&limit=%d&order_by=datetime&sort=desc",
		c.baseURL, center.Lat, center.Lon, int(radiusKm*1000), defaultParameter, pageLimit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch measurements: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from measurements endpoint", resp.StatusCode)
	}

	var result measurementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode measurements response: %w", err)
	}

	snapshot := airquality.NewSnapshot(ProviderName)
	for _, m := range result.Results {
		id := strconv.FormatInt(m.LocationID, 10)
		if _, seen := snapshot.Readings[id]; seen {
			continue
		}

		reading, ok := c.toReading(&m)
		if !ok {
			continue
		}
		snapshot.Set(id, reading)
	}

	return snapshot, nil
}

// toReading converts API measurement data to a domain Reading.
func (c *Client) toReading(m *measurementData) (airquality.Reading, bool) {
	loc := geo.Coordinate{Lat: m.Coordinates.Latitude, Lon: m.Coordinates.Longitude}
	if err := loc.Validate(); err != nil {
		return airquality.Reading{}, false
	}

	measuredAt, err := time.Parse(time.RFC3339, m.Date.UTC)
	if err != nil {
		measuredAt = time.Now()
	}

	reading := airquality.Reading{
		Location:   loc,
		AQI:        ConcentrationToAQI(m.Value, m.Parameter),
		MeasuredAt: measuredAt,
	}
	if err := reading.Validate(); err != nil {
		return airquality.Reading{}, false
	}
	return reading, true
}

// ConcentrationToAQI converts a pollutant concentration in µg/m³ to the US
// EPA AQI scale using piecewise-linear breakpoints. Parameters without
// breakpoint tables fall back to a coarse doubling heuristic, capped at 500.
func ConcentrationToAQI(concentration float64, parameter string) float64 {
	switch strings.ToLower(parameter) {
	case "pm25":
		return piecewise(concentration, pm25Breakpoints)
	case "pm10":
		return piecewise(concentration, pm10Breakpoints)
	default:
		return min(500, max(0, concentration*2))
	}
}

type breakpoint struct {
	concLo, concHi float64
	aqiLo, aqiHi   float64
}

var pm25Breakpoints = []breakpoint{
	{0, 12.0, 0, 50},
	{12.0, 35.4, 50, 100},
	{35.4, 55.4, 100, 150},
	{55.4, 150.4, 150, 200},
	{150.4, 250.4, 200, 300},
	{250.4, 500.0, 300, 500},
}

var pm10Breakpoints = []breakpoint{
	{0, 54, 0, 50},
	{54, 154, 50, 100},
	{154, 254, 100, 150},
	{254, 354, 150, 200},
	{354, 424, 200, 300},
	{424, 600, 300, 500},
}

func piecewise(conc float64, table []breakpoint) float64 {
	if conc <= 0 {
		return 0
	}
	for _, bp := range table {
		if conc <= bp.concHi {
			return bp.aqiLo + (conc-bp.concLo)*(bp.aqiHi-bp.aqiLo)/(bp.concHi-bp.concLo)
		}
	}
	return 500
}
