package pollution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"eco-route/model"
	"eco-route/utils"
)

// Provider fetches the current air-quality readings.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Reading, error)
}

// StaticProvider serves a fixed set of readings, e.g. the area baselines.
type StaticProvider struct {
	readings []model.Reading
}

// NewStaticProvider builds a provider from the areas' baseline values.
func NewStaticProvider(areas []model.Area) *StaticProvider {
	rs := make([]model.Reading, 0, len(areas))
	for _, a := range areas {
		rs = append(rs, a.Reading())
	}
	return &StaticProvider{readings: rs}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Fetch(ctx context.Context) ([]model.Reading, error) {
	if len(p.readings) == 0 {
		return nil, errors.New("no static readings configured")
	}
	rs := make([]model.Reading, len(p.readings))
	copy(rs, p.readings)
	return rs, nil
}

// HTTPProvider polls a JSON endpoint. The body is either an array of
// readings or an object with a "readings" array.
type HTTPProvider struct {
	URL    string
	Client *http.Client
}

// NewHTTPProvider creates a provider with a bounded request timeout.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Fetch(ctx context.Context) ([]model.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch readings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch readings: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return decodeReadings(body)
}

func decodeReadings(body []byte) ([]model.Reading, error) {
	var rs []model.Reading
	if err := json.Unmarshal(body, &rs); err != nil {
		var wrapped struct {
			Readings []model.Reading `json:"readings"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode readings: %w", err)
		}
		rs = wrapped.Readings
	}

	valid := rs[:0]
	for _, r := range rs {
		if !utils.ValidCoordinate(r.Point()) || r.AQI < 0 || math.IsNaN(r.AQI) || math.IsNaN(r.CO2) {
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return nil, errors.New("no valid readings in response")
	}
	return valid, nil
}
