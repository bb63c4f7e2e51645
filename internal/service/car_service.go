package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/rs/zerolog"
)

// CarService manages the fleet catalog and keeps the brand list cached.
type CarService struct {
	repo   domain.CarRepository
	cache  domain.CatalogCache
	logger *zerolog.Logger
}

func NewCarService(repo domain.CarRepository, cache domain.CatalogCache, logger *zerolog.Logger) *CarService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CarService{repo: repo, cache: cache, logger: logger}
}

func (s *CarService) ListCars(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	return s.repo.ListCars(ctx, filter)
}

func (s *CarService) GetCar(ctx context.Context, id string) (*models.Car, error) {
	return s.repo.GetCar(ctx, id)
}

func (s *CarService) CreateCar(ctx context.Context, car *models.Car) error {
	car.ApplyDefaults()
	if err := validateCar(car); err != nil {
		return err
	}
	if err := s.repo.CreateCar(ctx, car); err != nil {
		return err
	}
	s.logger.Info().Str("car_id", car.ID).Str("brand", car.Brand).Msg("car created")
	s.invalidateBrands(ctx)
	return nil
}

func (s *CarService) UpdateCar(ctx context.Context, car *models.Car) error {
	if err := validateCar(car); err != nil {
		return err
	}
	if err := s.repo.UpdateCar(ctx, car); err != nil {
		return err
	}
	s.invalidateBrands(ctx)
	return nil
}

// DeleteCar removes the car; bookings that reference it are kept.
func (s *CarService) DeleteCar(ctx context.Context, id string) error {
	if err := s.repo.DeleteCar(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("car_id", id).Msg("car deleted")
	s.invalidateBrands(ctx)
	return nil
}

// Brands returns distinct brands, served from cache when possible.
func (s *CarService) Brands(ctx context.Context) ([]string, error) {
	if s.cache != nil {
		brands, ok, err := s.cache.GetBrands(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("brand cache read failed")
		} else if ok {
			return brands, nil
		}
	}

	brands, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, err
	}
	if brands == nil {
		brands = []string{}
	}

	if s.cache != nil {
		if err := s.cache.SetBrands(ctx, brands, models.BrandsCacheTTL); err != nil {
			s.logger.Warn().Err(err).Msg("brand cache write failed")
		}
	}
	return brands, nil
}

// SeedFleet creates the cars not yet in the catalog. A car with an id is
// matched by id, otherwise by brand and name.
func (s *CarService) SeedFleet(ctx context.Context, fleet []models.Car) (created, skipped int, err error) {
	for i := range fleet {
		car := fleet[i]
		exists, err := s.inCatalog(ctx, &car)
		if err != nil {
			return created, skipped, err
		}
		if exists {
			skipped++
			continue
		}
		if err := s.CreateCar(ctx, &car); err != nil {
			return created, skipped, fmt.Errorf("seed %s %s: %w", car.Brand, car.Name, err)
		}
		created++
	}
	return created, skipped, nil
}

func (s *CarService) inCatalog(ctx context.Context, car *models.Car) (bool, error) {
	if car.ID != "" {
		_, err := s.repo.GetCar(ctx, car.ID)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, domain.ErrNotFound):
			return false, nil
		default:
			return false, err
		}
	}

	same, err := s.repo.ListCars(ctx, models.CarFilter{Brand: car.Brand})
	if err != nil {
		return false, err
	}
	for _, c := range same {
		if strings.EqualFold(c.Name, car.Name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *CarService) invalidateBrands(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBrands(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("brand cache invalidation failed")
	}
}

func validateCar(car *models.Car) error {
	if strings.TrimSpace(car.Name) == "" || strings.TrimSpace(car.Brand) == "" {
		return fmt.Errorf("%w: name and brand are required", domain.ErrInvalidInput)
	}
	if car.PricePerDay < 0 || math.IsNaN(car.PricePerDay) || math.IsInf(car.PricePerDay, 0) {
		return domain.ErrInvalidPrice
	}
	if !car.Transmission.IsValid() {
		return fmt.Errorf("%w: transmission %q", domain.ErrInvalidInput, car.Transmission)
	}
	if !car.FuelType.IsValid() {
		return fmt.Errorf("%w: fuel type %q", domain.ErrInvalidInput, car.FuelType)
	}
	if car.Seats < 0 || car.Year < 0 || car.Mileage < 0 {
		return fmt.Errorf("%w: negative numeric field", domain.ErrInvalidInput)
	}
	return nil
}
