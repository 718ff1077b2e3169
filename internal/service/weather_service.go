package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"skywatch/internal/weather"
)

// WeatherService valida las consultas, las reenvía al proveedor y cachea las respuestas.
// Una falla del cache nunca corta la consulta.
type WeatherService struct {
	logger   *zap.Logger
	provider weather.Provider
	cache    WeatherCache
	ttl      time.Duration
}

func NewWeatherService(logger *zap.Logger, provider weather.Provider, cache WeatherCache, ttl time.Duration) *WeatherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeatherService{
		logger:   logger,
		provider: provider,
		cache:    cache,
		ttl:      ttl,
	}
}

// CurrentQuery recibe los parámetros crudos del query string.
type CurrentQuery struct {
	Latitude  string `json:"latitude" validate:"required,numeric"`
	Longitude string `json:"longitude" validate:"required,numeric"`
}

func (s *WeatherService) Current(ctx context.Context, q CurrentQuery) (json.RawMessage, error) {
	q.Latitude = strings.TrimSpace(q.Latitude)
	q.Longitude = strings.TrimSpace(q.Longitude)
	if err := validateStruct(q); err != nil {
		return nil, err
	}
	lat, latErr := strconv.ParseFloat(q.Latitude, 64)
	lon, lonErr := strconv.ParseFloat(q.Longitude, 64)
	fields := make(map[string]string)
	if latErr != nil || lat < -90 || lat > 90 {
		fields["latitude"] = "must be between -90 and 90"
	}
	if lonErr != nil || lon < -180 || lon > 180 {
		fields["longitude"] = "must be between -180 and 180"
	}
	if len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	key := fmt.Sprintf("current:%.4f:%.4f", lat, lon)
	return s.cached(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return s.provider.CurrentWeather(ctx, lat, lon)
	})
}

func (s *WeatherService) Suggestions(ctx context.Context, search string) (json.RawMessage, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return nil, newValidationError(map[string]string{"search": "is required"})
	}
	if len(search) > 100 {
		return nil, newValidationError(map[string]string{"search": "must be at most 100 characters"})
	}

	key := "suggest:" + strings.ToLower(search)
	return s.cached(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return s.provider.GeocodeSuggestions(ctx, search)
	})
}

func (s *WeatherService) cached(ctx context.Context, key string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if s.cache != nil {
		if body, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("weather cache get failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return json.RawMessage(body), nil
		}
	}

	body, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, weather.ErrNoAPIKey) {
			return nil, ErrWeatherUnavailable
		}
		s.logger.Error("weather provider failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, body, s.ttl); err != nil {
			s.logger.Warn("weather cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return body, nil
}
