package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetBrands(ctx context.Context) ([]string, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]string), args.Bool(1), args.Error(2)
}

func (m *mockCache) SetBrands(ctx context.Context, brands []string, ttl time.Duration) error {
	return m.Called(ctx, brands, ttl).Error(0)
}

func (m *mockCache) InvalidateBrands(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverCacheRepository(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCacheRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("GetBrands", ctx).Return([]string{"Audi"}, true, nil).Once()

		brands, ok, err := repo.GetBrands(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"Audi"}, brands)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("GetBrands", ctx).Return(nil, false, errors.New("fail")).Once()
		fallback.On("GetBrands", ctx).Return([]string{"BMW"}, true, nil).Once()

		brands, ok, err := repo.GetBrands(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"BMW"}, brands)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().UnixNano())
		fallback.On("CheckRateLimit", ctx, "customer:1", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "customer:1", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		fallback.AssertExpectations(t)
		primary.AssertNotCalled(t, "CheckRateLimit", ctx, "customer:1", 10, time.Minute)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("CheckRateLimit", ctx, "customer:2", 10, time.Minute).Return(false, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "customer:2", 10, time.Minute)
		assert.NoError(t, err)
		assert.False(t, allowed)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("SetBrands", ctx, []string{"VW"}, time.Minute).Return(errors.New("still fail")).Once()
		fallback.On("SetBrands", ctx, []string{"VW"}, time.Minute).Return(nil).Once()

		err := repo.SetBrands(ctx, []string{"VW"}, time.Minute)
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateClearsBoth", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("InvalidateBrands", ctx).Return(nil).Once()
		primary.On("InvalidateBrands", ctx).Return(nil).Once()

		assert.NoError(t, repo.InvalidateBrands(ctx))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
