package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carrental/internal/auth"
	"carrental/internal/domain"
	"carrental/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo       domain.Repository
	tokens     *auth.TokenManager
	bookings   *BookingService
	bcryptCost int
	logger     *zerolog.Logger
}

func NewUserService(repo domain.Repository, tokens *auth.TokenManager, bookings *BookingService, bcryptCost int, logger *zerolog.Logger) *UserService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &UserService{
		repo:       repo,
		tokens:     tokens,
		bookings:   bookings,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an account and returns it with a fresh token. Role defaults to customer.
func (s *UserService) Register(ctx context.Context, name, email, password, phone string, role models.Role) (*models.User, string, error) {
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.IsValid() {
		return nil, "", fmt.Errorf("%w: role %q", domain.ErrInvalidInput, role)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: name, email and password are required", domain.ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Phone:        phone,
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user registered")
	return user.Redacted(), token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", err
	}
	return user.Redacted(), token, nil
}

func (s *UserService) Profile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Redacted(), nil
}

func (s *UserService) ListCustomers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.ListUsersByRole(ctx, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Redacted())
	}
	return out, nil
}

// GetCustomerWithBookings returns the user and their booking history, newest first.
func (s *UserService) GetCustomerWithBookings(ctx context.Context, id string) (*models.CustomerWithBookings, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListForCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CustomerWithBookings{Customer: user.Redacted(), Bookings: bookings}, nil
}
