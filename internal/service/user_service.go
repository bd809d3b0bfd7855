package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/internal/repository"
	"github.com/aditya/go-dispatch/pkg/utils"
)

const defaultRating = 5.0

type UserService interface {
	RegisterRider(ctx context.Context, req *models.CreateRiderRequest) (*models.User, error)
	RegisterDriver(ctx context.Context, req *models.CreateDriverRequest) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	gateway repository.Gateway
	clock   Clock
	logger  *slog.Logger
}

func NewUserService(gateway repository.Gateway, clock Clock, logger *slog.Logger) UserService {
	if clock == nil {
		clock = SystemClock()
	}
	return &userService{gateway: gateway, clock: clock, logger: logger}
}

func (s *userService) RegisterRider(ctx context.Context, req *models.CreateRiderRequest) (*models.User, error) {
	at := now(s.clock)
	user := &models.User{
		ID:        utils.GenerateID(),
		Role:      models.RoleRider,
		Phone:     strings.TrimSpace(req.Phone),
		Name:      strings.TrimSpace(req.Name),
		Email:     optional(req.Email),
		Rating:    defaultRating,
		Rider:     &models.RiderProfile{PaymentMethods: req.PaymentMethods},
		CreatedAt: at,
		UpdatedAt: at,
	}
	if user.Rider.PaymentMethods == nil {
		user.Rider.PaymentMethods = []string{}
	}

	err := s.gateway.WithTx(ctx, func(q repository.Queries) error {
		return s.insertUser(ctx, q, user)
	})
	if err != nil {
		return nil, mapError(s.logger, "register_rider", err)
	}

	s.logger.Info("rider registered", "user_id", user.ID)
	return user, nil
}

// RegisterDriver stores the driver and an available record for dispatch in
// one transaction.
func (s *userService) RegisterDriver(ctx context.Context, req *models.CreateDriverRequest) (*models.User, error) {
	at := now(s.clock)
	user := &models.User{
		ID:     utils.GenerateID(),
		Role:   models.RoleDriver,
		Phone:  strings.TrimSpace(req.Phone),
		Name:   strings.TrimSpace(req.Name),
		Email:  optional(req.Email),
		Rating: defaultRating,
		Driver: &models.DriverProfile{
			LicenseNumber: strings.TrimSpace(req.LicenseNumber),
			Vehicle: models.Vehicle{
				PlateNumber: strings.TrimSpace(req.Vehicle.PlateNumber),
				Type:        req.Vehicle.Type,
				Model:       strings.TrimSpace(req.Vehicle.Model),
			},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}

	err := s.gateway.WithTx(ctx, func(q repository.Queries) error {
		if err := s.insertUser(ctx, q, user); err != nil {
			return err
		}
		return q.InsertAvailability(ctx, &models.Availability{
			DriverID:    user.ID,
			IsAvailable: true,
			UpdatedAt:   at,
		})
	})
	if err != nil {
		return nil, mapError(s.logger, "register_driver", err)
	}

	s.logger.Info("driver registered", "user_id", user.ID)
	return user, nil
}

func (s *userService) insertUser(ctx context.Context, q repository.UserQueries, user *models.User) error {
	existing, err := q.FindUserByPhone(ctx, user.Phone)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.Conflict("user with this phone already exists")
	}

	if err := q.InsertUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.Conflict("user with this phone already exists")
		}
		return err
	}
	return nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.gateway.FindUser(ctx, id)
	if err != nil {
		return nil, mapError(s.logger, "get_user", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}
	return user, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
