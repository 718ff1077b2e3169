package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL    = "https://api.openweathermap.org/data/2.5"
	defaultGeoBaseURL = "https://api.openweathermap.org/geo/1.0"
	suggestionLimit   = 5
	maxBodyBytes      = 1 << 20
)

var ErrNoAPIKey = errors.New("openweather api key not configured")

// Provider define las consultas que el proxy reenvía a OpenWeather.
// Las respuestas se devuelven tal cual las entrega el proveedor.
type Provider interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (json.RawMessage, error)
	GeocodeSuggestions(ctx context.Context, query string) (json.RawMessage, error)
}

// StatusError representa una respuesta no exitosa del proveedor.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openweather http error: status=%d", e.StatusCode)
}

// HTTPClient implementa Provider contra la API de OpenWeather.
type HTTPClient struct {
	baseURL    string
	geoBaseURL string
	apiKey     string
	client     *http.Client
	logger     *zap.Logger
}

// NewHTTPClient construye el cliente; las URLs vacías usan los endpoints públicos.
func NewHTTPClient(baseURL, geoBaseURL, apiKey string, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if geoBaseURL == "" {
		geoBaseURL = defaultGeoBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		geoBaseURL: strings.TrimRight(geoBaseURL, "/"),
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *HTTPClient) CurrentWeather(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("units", "metric")
	return c.get(ctx, c.baseURL+"/weather", q)
}

func (c *HTTPClient) GeocodeSuggestions(ctx context.Context, query string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(suggestionLimit))
	return c.get(ctx, c.geoBaseURL+"/direct", q)
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, q url.Values) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// La URL lleva la api key; se loguea sólo el path.
		c.logger.Warn("openweather error",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("openweather returned invalid json")
	}

	c.logger.Debug("openweather request",
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return json.RawMessage(body), nil
}
