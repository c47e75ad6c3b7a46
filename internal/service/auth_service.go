package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"walletwise-api/internal/ledger"
	"walletwise-api/internal/middleware"
	"walletwise-api/internal/models"
	"walletwise-api/internal/repository"
)

// AuthService handles registration, login, and profile management.
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, req *UpdateProfileRequest) (*models.User, error)
}

type RegisterRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	FullName  string `json:"full_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FullName        *string `json:"full_name"`
	PhoneNumber     *string `json:"phone_number"`
	Department      *string `json:"department"`
	Year            *string `json:"year"`
	Currency        *string `json:"currency"`
	DateFormat      *string `json:"date_format"`
	Language        *string `json:"language"`
	IncomeFrequency *string `json:"income_frequency"`
	IncomeSources   *string `json:"income_sources"`
	Priorities      *string `json:"priorities"`
	RiskTolerance   *string `json:"risk_tolerance"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	auth     *middleware.AuthMiddleware
}

func NewAuthService(userRepo repository.UserRepository, auth *middleware.AuthMiddleware) AuthService {
	return &authService{
		userRepo: userRepo,
		auth:     auth,
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "check existing user", Err: err}
	}
	if existing != nil {
		return nil, &ledger.ValidationError{Reason: "email already registered"}
	}

	user := models.NewUser(req.StudentID, req.FullName, req.Email)
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to set password: %w", err)
	}

	if err := user.Validate(); err != nil {
		return nil, &ledger.ValidationError{Reason: err.Error()}
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "create user", Err: err}
	}

	token, err := s.auth.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{Token: token, User: user}, nil
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "find user", Err: err}
	}
	if user == nil || !user.ComparePassword(req.Password) {
		return nil, &ledger.ValidationError{Reason: "invalid email or password"}
	}

	token, err := s.auth.IssueToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{Token: token, User: user}, nil
}

func (s *authService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "get user", Err: err}
	}
	if user == nil {
		return nil, &ledger.NotFoundError{Resource: "user", ID: userID.Hex()}
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	apply(&user.FullName, req.FullName)
	apply(&user.PhoneNumber, req.PhoneNumber)
	apply(&user.Department, req.Department)
	apply(&user.Year, req.Year)
	apply(&user.Currency, req.Currency)
	apply(&user.DateFormat, req.DateFormat)
	apply(&user.Language, req.Language)
	apply(&user.IncomeFrequency, req.IncomeFrequency)
	apply(&user.IncomeSources, req.IncomeSources)
	apply(&user.Priorities, req.Priorities)
	apply(&user.RiskTolerance, req.RiskTolerance)

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, &ledger.StoreUnavailableError{Op: "update user", Err: err}
	}

	return user, nil
}
