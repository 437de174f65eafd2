package service

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rumora/website/internal/apperror"
	"github.com/rumora/website/internal/model"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Plans    []model.Plan     `yaml:"plans"`
	Services []model.Offering `yaml:"services"`
}

// SignupRequest is a mailing-list signup from the marketing pages.
type SignupRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name"  validate:"max=64"`
}

// SignupResult is what the page shows after a signup.
type SignupResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// CatalogService serves the plans and services shown on the marketing pages
// and accepts signups.
type CatalogService struct {
	plans     []model.Plan
	offerings []model.Offering
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewCatalogService loads the embedded catalog.
func NewCatalogService(logger *slog.Logger) (*CatalogService, error) {
	return NewCatalogServiceFromYAML(defaultCatalog, logger)
}

// NewCatalogServiceFromYAML loads a catalog document.
func NewCatalogServiceFromYAML(data []byte, logger *slog.Logger) (*CatalogService, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("service/catalog: parsing catalog: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("service/catalog: catalog has no plans")
	}

	return &CatalogService{
		plans:     f.Plans,
		offerings: f.Services,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}, nil
}

// Plans returns a copy of the plan list.
func (s *CatalogService) Plans() []model.Plan {
	out := make([]model.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

// Offerings returns a copy of the services list.
func (s *CatalogService) Offerings() []model.Offering {
	out := make([]model.Offering, len(s.offerings))
	copy(out, s.offerings)
	return out
}

// Signup validates req and records it in the log. Nothing is stored.
func (s *CatalogService) Signup(req SignupRequest) (*SignupResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := s.validate.Struct(req); err != nil {
		return nil, signupValidationError(err)
	}

	s.logger.Info("signup received", slog.String("email", req.Email))

	return &SignupResult{
		Success:  true,
		Message:  "Welcome to Rumora! Check your email for verification.",
		Redirect: "/testing",
	}, nil
}

// signupValidationError turns the first validator failure into an AppError.
func signupValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.ValidationFailed("", "invalid signup request")
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperror.ValidationFailed(field, field+" is required")
	case "email":
		return apperror.ValidationFailed(field, "email is not a valid address")
	case "max":
		return apperror.ValidationFailed(field, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
	default:
		return apperror.ValidationFailed(field, field+" is invalid")
	}
}
