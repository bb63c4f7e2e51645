package service

import (
	"context"
	"errors"
	"testing"

	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCarService_CreateAppliesDefaultsAndInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	cache := new(mockCatalogCache)
	svc := NewCarService(repo, cache, nil)

	car := &models.Car{Name: "Model 3", Brand: "Tesla", PricePerDay: 120, Available: true}
	repo.On("CreateCar", ctx, car).Return(nil)
	cache.On("InvalidateBrands", ctx).Return(nil)

	require.NoError(t, svc.CreateCar(ctx, car))
	assert.Equal(t, models.TransmissionManual, car.Transmission)
	assert.Equal(t, models.FuelPetrol, car.FuelType)
	assert.Equal(t, models.DefaultCarSeats, car.Seats)
	assert.Equal(t, models.DefaultCarImage, car.Image)
	cache.AssertExpectations(t)
}

func TestCarService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewCarService(new(mockRepo), nil, nil)

	err := svc.CreateCar(ctx, &models.Car{Brand: "Tesla"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.CreateCar(ctx, &models.Car{Name: "X", Brand: "Tesla", PricePerDay: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	err = svc.CreateCar(ctx, &models.Car{Name: "X", Brand: "Tesla", Transmission: "CVT"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = svc.UpdateCar(ctx, &models.Car{Name: "X", Brand: "Tesla", Transmission: models.TransmissionManual, FuelType: "Steam"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCarService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	cache := new(mockCatalogCache)
	svc := NewCarService(repo, cache, nil)

	car := &models.Car{ID: "c1", Name: "X", Brand: "BMW", Transmission: models.TransmissionAutomatic, FuelType: models.FuelDiesel}
	repo.On("UpdateCar", ctx, car).Return(nil)
	repo.On("DeleteCar", ctx, "c1").Return(nil)
	repo.On("DeleteCar", ctx, "c2").Return(domain.ErrNotFound)
	cache.On("InvalidateBrands", ctx).Return(errors.New("redis down"))

	require.NoError(t, svc.UpdateCar(ctx, car))
	require.NoError(t, svc.DeleteCar(ctx, "c1"))
	assert.ErrorIs(t, svc.DeleteCar(ctx, "c2"), domain.ErrNotFound)
	cache.AssertNumberOfCalls(t, "InvalidateBrands", 2)
}

func TestCarService_BrandsCache(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockCatalogCache)
		cache.On("GetBrands", ctx).Return([]string{"BMW"}, true, nil)

		brands, err := NewCarService(repo, cache, nil).Brands(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"BMW"}, brands)
		repo.AssertNotCalled(t, "ListBrands", mock.Anything)
	})

	t.Run("miss fills cache", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockCatalogCache)
		cache.On("GetBrands", ctx).Return(nil, false, nil)
		repo.On("ListBrands", ctx).Return([]string{"Audi", "BMW"}, nil)
		cache.On("SetBrands", ctx, []string{"Audi", "BMW"}, models.BrandsCacheTTL).Return(nil)

		brands, err := NewCarService(repo, cache, nil).Brands(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Audi", "BMW"}, brands)
		cache.AssertExpectations(t)
	})

	t.Run("cache error falls through", func(t *testing.T) {
		repo := new(mockRepo)
		cache := new(mockCatalogCache)
		cache.On("GetBrands", ctx).Return(nil, false, errors.New("boom"))
		cache.On("SetBrands", ctx, []string{}, models.BrandsCacheTTL).Return(nil)
		repo.On("ListBrands", ctx).Return(nil, nil)

		brands, err := NewCarService(repo, cache, nil).Brands(ctx)
		require.NoError(t, err)
		assert.Empty(t, brands)
		assert.NotNil(t, brands)
	})

	t.Run("no cache", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("ListBrands", ctx).Return(nil, errors.New("db down"))
		_, err := NewCarService(repo, nil, nil).Brands(ctx)
		assert.Error(t, err)
	})
}

func TestCarService_ListPassesFilter(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	avail := true
	filter := models.CarFilter{Brand: "BMW", Available: &avail}
	repo.On("ListCars", ctx, filter).Return([]*models.Car{{ID: "c1"}}, nil)

	cars, err := NewCarService(repo, nil, nil).ListCars(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, cars, 1)
}

func TestCarService_SeedFleet(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := NewCarService(repo, nil, nil)

	fleet := []models.Car{
		{ID: "known", Name: "Corolla", Brand: "Toyota", PricePerDay: 50},
		{Name: "Civic", Brand: "Honda", PricePerDay: 60},
		{Name: "X5", Brand: "BMW", PricePerDay: 200},
	}
	repo.On("GetCar", ctx, "known").Return(&models.Car{ID: "known"}, nil)
	repo.On("ListCars", ctx, models.CarFilter{Brand: "Honda"}).Return([]*models.Car{{Name: "civic", Brand: "Honda"}}, nil)
	repo.On("ListCars", ctx, models.CarFilter{Brand: "BMW"}).Return(nil, nil)
	repo.On("CreateCar", ctx, mock.MatchedBy(func(c *models.Car) bool { return c.Name == "X5" })).Return(nil).Once()

	created, skipped, err := svc.SeedFleet(ctx, fleet)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, skipped)
	repo.AssertExpectations(t)
}
