package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"skywatch/internal/domain"
	"skywatch/internal/repository"
)

// LocationService administra las ubicaciones guardadas del usuario autenticado.
// Una ubicación de otro usuario se trata igual que una inexistente.
type LocationService struct {
	logger    *zap.Logger
	locations repository.LocationRepository
	now       func() time.Time
}

func NewLocationService(logger *zap.Logger, locations repository.LocationRepository) *LocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationService{
		logger:    logger,
		locations: locations,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LocationInput usa punteros para distinguir latitud 0 de un campo ausente.
type LocationInput struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (s *LocationService) List(ctx context.Context, userID, search string) ([]domain.Location, error) {
	locations, err := s.locations.ListByUser(ctx, userID, search)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

func (s *LocationService) Get(ctx context.Context, userID, locationID string) (domain.Location, error) {
	if _, err := uuid.Parse(locationID); err != nil {
		return domain.Location{}, ErrLocationNotFound
	}
	loc, err := s.locations.GetByID(ctx, userID, locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Location{}, ErrLocationNotFound
		}
		return domain.Location{}, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

// Add guarda la ubicación y devuelve la lista completa actualizada.
func (s *LocationService) Add(ctx context.Context, userID string, input LocationInput) ([]domain.Location, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	now := s.now()
	loc := domain.Location{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      input.Name,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	s.logger.Info("location saved", zap.String("user_id", userID), zap.String("location_id", loc.ID))

	return s.List(ctx, userID, "")
}

func (s *LocationService) Update(ctx context.Context, userID, locationID string, input LocationInput) (domain.Location, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateStruct(input); err != nil {
		return domain.Location{}, err
	}
	if _, err := uuid.Parse(locationID); err != nil {
		return domain.Location{}, ErrLocationNotFound
	}

	updated, err := s.locations.Update(ctx, domain.Location{
		ID:        locationID,
		UserID:    userID,
		Name:      input.Name,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		UpdatedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Location{}, ErrLocationNotFound
		}
		return domain.Location{}, fmt.Errorf("update location: %w", err)
	}
	return updated, nil
}

// Remove borra la ubicación y devuelve las restantes.
func (s *LocationService) Remove(ctx context.Context, userID, locationID string) ([]domain.Location, error) {
	if _, err := uuid.Parse(locationID); err != nil {
		return nil, ErrLocationNotFound
	}
	if err := s.locations.Delete(ctx, userID, locationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("delete location: %w", err)
	}
	s.logger.Info("location removed", zap.String("user_id", userID), zap.String("location_id", locationID))

	return s.List(ctx, userID, "")
}
