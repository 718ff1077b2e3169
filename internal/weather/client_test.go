package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_CurrentWeatherBuildsQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"lat":   r.URL.Query().Get("lat"),
			"lon":   r.URL.Query().Get("lon"),
			"units": r.URL.Query().Get("units"),
			"appid": r.URL.Query().Get("appid"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Paris","main":{"temp":12.5}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/data/2.5/", srv.URL+"/geo/1.0", "key-123", nil)
	body, err := c.CurrentWeather(context.Background(), 48.85, 2.35)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Paris","main":{"temp":12.5}}`, string(body))
	assert.Equal(t, "/data/2.5/weather", gotPath)
	assert.Equal(t, map[string]string{"lat": "48.85", "lon": "2.35", "units": "metric", "appid": "key-123"}, gotQuery)
}

func TestHTTPClient_GeocodeSuggestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geo/1.0/direct", r.URL.Path)
		assert.Equal(t, "San José", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"name":"San José","country":"CR"}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, srv.URL+"/geo/1.0", "key", nil)
	body, err := c.GeocodeSuggestions(context.Background(), "San José")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"San José","country":"CR"}]`, string(body))
}

func TestHTTPClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, srv.URL, "bad", nil)
	_, err := c.CurrentWeather(context.Background(), 0, 0)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestHTTPClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, srv.URL, "key", nil)
	_, err := c.CurrentWeather(context.Background(), 0, 0)
	require.Error(t, err)
}

func TestHTTPClient_RequiresAPIKey(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:0", "", "", nil)
	_, err := c.GeocodeSuggestions(context.Background(), "paris")
	require.ErrorIs(t, err, ErrNoAPIKey)
}
