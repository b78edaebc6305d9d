// Package power ingests daily weather observations from the NASA POWER
// agroclimatology API. The engine uses it to top up same-day readings for
// regions whose ground feeds are lagging; scoring never calls it directly.
package power

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/observability"
)

// Source fetches daily weather for a region over an inclusive date range.
type Source interface {
	FetchDaily(ctx context.Context, region domain.Region, from, to time.Time) ([]domain.WeatherObservation, error)
}

// fillValue marks missing readings in POWER responses.
const fillValue = -999.0

// Client implements Source against the POWER daily point endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a POWER API client. The API is keyless.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://power.larc.nasa.gov/api/temporal/daily/point",
		logger:  logger,
		metrics: metrics,
	}
}

func (c *Client) FetchDaily(ctx context.Context, region domain.Region, from, to time.Time) ([]domain.WeatherObservation, error) {
	params := url.Values{
		"parameters": {"T2M,T2M_MAX,T2M_MIN,PRECTOTCORR,RH2M,WS2M"},
		"community":  {"AG"},
		"latitude":   {fmt.Sprintf("%.4f", region.Latitude)},
		"longitude":  {fmt.Sprintf("%.4f", region.Longitude)},
		"start":      {domain.DateOf(from).Format("20060102")},
		"end":        {domain.DateOf(to).Format("20060102")},
		"format":     {"JSON"},
	}

	start := time.Now()
	obs, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode(), region.ID)
	c.metrics.WeatherAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return nil, err
	case len(obs) == 0:
		c.metrics.WeatherRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	}
	return obs, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, regionID string) ([]domain.WeatherObservation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("power daily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("power API error: status %d: %s", resp.StatusCode, body)
	}

	var powerResp response
	if err := json.NewDecoder(resp.Body).Decode(&powerResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return powerResp.observations(regionID), nil
}

// POWER API response types. Each parameter maps YYYYMMDD keys to values.

type response struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// observations flattens the per-parameter maps into one record per day,
// dropping days where the temperature average carries the fill value.
func (r response) observations(regionID string) []domain.WeatherObservation {
	avg := r.Properties.Parameter["T2M"]
	if len(avg) == 0 {
		return nil
	}

	var out []domain.WeatherObservation
	for key, t2m := range avg {
		if t2m == fillValue {
			continue
		}
		date, err := time.ParseInLocation("20060102", key, time.UTC)
		if err != nil {
			continue
		}
		out = append(out, domain.WeatherObservation{
			RegionID:        regionID,
			Date:            date,
			TemperatureAvgC: t2m,
			TemperatureMaxC: r.value("T2M_MAX", key),
			TemperatureMinC: r.value("T2M_MIN", key),
			PrecipitationMM: r.value("PRECTOTCORR", key),
			HumidityPercent: r.value("RH2M", key),
			WindSpeedKMH:    r.value("WS2M", key) * 3.6, // m/s to km/h
			Source:          "nasa_power",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (r response) value(parameter, key string) float64 {
	v, ok := r.Properties.Parameter[parameter][key]
	if !ok || v == fillValue {
		return 0
	}
	return v
}
