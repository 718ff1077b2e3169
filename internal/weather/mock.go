package weather

import (
	"context"
	"encoding/json"
	"sync/atomic"
)

// MockClient permite tests sin llamar a OpenWeather.
type MockClient struct {
	Current     json.RawMessage
	Suggestions json.RawMessage
	Err         error

	calls atomic.Int64
}

func (m *MockClient) CurrentWeather(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	m.calls.Add(1)
	return m.Current, m.Err
}

func (m *MockClient) GeocodeSuggestions(ctx context.Context, query string) (json.RawMessage, error) {
	m.calls.Add(1)
	return m.Suggestions, m.Err
}

// Calls devuelve cuántas consultas llegaron al proveedor.
func (m *MockClient) Calls() int64 {
	return m.calls.Load()
}
