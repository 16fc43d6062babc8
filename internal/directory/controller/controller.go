// Package controller implements the core business logic (service layer)
// of the directory: input validation, referential checks against regions
// and services, ownership enforcement on mutations, pagination, and
// lifecycle event production.
package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/wastedir/internal/directory/errors"
	"github.com/gartstein/wastedir/internal/directory/events"
	"github.com/gartstein/wastedir/internal/directory/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type EventProducer interface {
	Produce(eventType events.EventType, company *models.Company)
}

// Repository defines the storage interface the directory operates against.
type Repository interface {
	FindCompanies(ctx context.Context, filter models.CompanyFilter, page, perPage int) ([]models.Company, int64, error)
	GetCompany(ctx context.Context, id uint) (*models.Company, error)
	CreateCompany(ctx context.Context, company *models.Company) error
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error
	DeleteCompany(ctx context.Context, id uint) error

	ListRegions(ctx context.Context) ([]models.Region, error)
	GetRegion(ctx context.Context, id uint) (*models.Region, error)
	CreateRegion(ctx context.Context, region *models.Region) error
	RegionExistsByName(ctx context.Context, name string) (bool, error)

	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id uint) (*models.Service, error)
	CreateService(ctx context.Context, service *models.Service) error
	ServiceExistsByName(ctx context.Context, name string) (bool, error)
	FindServicesByIDs(ctx context.Context, ids []uint) ([]models.Service, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)

	EntityCounts(ctx context.Context) (map[string]int64, error)
	Close() error
}

// DirectoryService provides the directory operations over a repository,
// producing lifecycle events for company mutations.
type DirectoryService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewDirectoryService constructs a DirectoryService with a repository,
// an event producer, and a logger.
func NewDirectoryService(repo Repository, producer EventProducer, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("directory_service"),
	}
}

// ListCompanies returns a filtered, paginated page of companies. Listing is
// public and never filtered by owner. Non-positive pagination parameters
// fall back to the defaults.
func (s *DirectoryService) ListCompanies(ctx context.Context, filter models.CompanyFilter, page, perPage int) (*models.CompanyPage, error) {
	if page < 1 {
		page = models.DefaultPage
	}
	if perPage < 1 {
		perPage = models.DefaultPerPage
	}

	companies, total, err := s.repo.FindCompanies(ctx, filter, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	if companies == nil {
		companies = []models.Company{}
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return &models.CompanyPage{
		Companies: companies,
		Total:     total,
		Pages:     pages,
		Page:      page,
		PerPage:   perPage,
	}, nil
}

// GetCompany retrieves a company by ID, returning ErrNotFound if absent.
func (s *DirectoryService) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// CreateCompany adds a new company owned by userID. Name and region are
// required, the region must exist, and serviceIDs is resolved to the subset
// of existing services (unknown ids are dropped, not rejected).
func (s *DirectoryService) CreateCompany(ctx context.Context, userID uint, company *models.Company, serviceIDs []uint) (*models.Company, error) {
	if company.Name == "" || company.RegionID == 0 {
		return nil, fmt.Errorf("%w: name and region_id are required", e.ErrInvalidInput)
	}

	if _, err := s.repo.GetRegion(ctx, company.RegionID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, e.ErrRegionNotFound
		}
		return nil, fmt.Errorf("failed to check region: %w", err)
	}

	services, err := s.repo.FindServicesByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve services: %w", err)
	}
	company.Services = services
	// Owner always comes from the verified identity, never the payload.
	company.UserID = userID

	if err := s.repo.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	created, err := s.repo.GetCompany(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload created company: %w", err)
	}
	go func() {
		s.producer.Produce(events.CompanyCreated, created)
	}()
	return created, nil
}

// UpdateCompany applies a partial update to a company owned by userID.
// Only non-nil fields change; a present RegionID must resolve; a present
// ServiceIDs replaces the association wholesale with the resolving subset.
func (s *DirectoryService) UpdateCompany(ctx context.Context, userID uint, update *models.CompanyUpdate) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, update.ID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if !s.isOwner(userID, company) {
		return nil, e.ErrNotOwner
	}

	if update.RegionID != nil {
		if _, err := s.repo.GetRegion(ctx, *update.RegionID); err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return nil, e.ErrRegionNotFound
			}
			return nil, fmt.Errorf("failed to check region: %w", err)
		}
	}

	if err := s.repo.UpdateCompany(ctx, update); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	updated, err := s.repo.GetCompany(ctx, update.ID)
	if err != nil {
		s.logger.Error("Failed to reload company after update",
			zap.Error(err),
			zap.Uint("company_id", update.ID),
		)
		return nil, err
	}
	go func() {
		s.producer.Produce(events.CompanyUpdated, updated)
	}()
	return updated, nil
}

// DeleteCompany removes a company owned by userID and fires a deletion event.
func (s *DirectoryService) DeleteCompany(ctx context.Context, userID uint, id uint) error {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get company for deletion: %w", err)
	}
	if !s.isOwner(userID, company) {
		return e.ErrNotOwner
	}

	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	go func() {
		s.producer.Produce(events.CompanyDeleted, company)
	}()
	return nil
}

// isOwner is the single ownership predicate: a plain comparison against the
// user id stamped at creation.
func (s *DirectoryService) isOwner(userID uint, company *models.Company) bool {
	return company.UserID == userID
}

// ListRegions returns all regions.
func (s *DirectoryService) ListRegions(ctx context.Context) ([]models.Region, error) {
	regions, err := s.repo.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return regions, nil
}

// GetRegion retrieves a region by ID.
func (s *DirectoryService) GetRegion(ctx context.Context, id uint) (*models.Region, error) {
	region, err := s.repo.GetRegion(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get region: %w", err)
	}
	return region, nil
}

// CreateRegion adds a region with a globally unique name. Any authenticated
// user may create one; regions are shared reference data.
func (s *DirectoryService) CreateRegion(ctx context.Context, region *models.Region) error {
	if region.Name == "" {
		return fmt.Errorf("%w: name is required", e.ErrInvalidInput)
	}
	exists, err := s.repo.RegionExistsByName(ctx, region.Name)
	if err != nil {
		return fmt.Errorf("failed to check region name: %w", err)
	}
	if exists {
		return e.ErrDuplicateName
	}
	if err := s.repo.CreateRegion(ctx, region); err != nil {
		return fmt.Errorf("failed to create region: %w", err)
	}
	return nil
}

// ListServices returns all services.
func (s *DirectoryService) ListServices(ctx context.Context) ([]models.Service, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// GetService retrieves a service by ID.
func (s *DirectoryService) GetService(ctx context.Context, id uint) (*models.Service, error) {
	service, err := s.repo.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return service, nil
}

// CreateService adds a service with a globally unique name.
func (s *DirectoryService) CreateService(ctx context.Context, service *models.Service) error {
	if service.Name == "" {
		return fmt.Errorf("%w: name is required", e.ErrInvalidInput)
	}
	exists, err := s.repo.ServiceExistsByName(ctx, service.Name)
	if err != nil {
		return fmt.Errorf("failed to check service name: %w", err)
	}
	if exists {
		return e.ErrDuplicateName
	}
	if err := s.repo.CreateService(ctx, service); err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	return nil
}

// RegisterUser creates an account with a bcrypt-hashed password.
func (s *DirectoryService) RegisterUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", e.ErrInvalidInput)
	}
	exists, err := s.repo.UserExists(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, e.ErrDuplicateName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies a username/password pair and returns the account.
// Both unknown users and bad passwords surface as the same invalid-input
// error so the response does not leak which part failed.
func (s *DirectoryService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", e.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", e.ErrInvalidInput)
	}
	return user, nil
}

// EntityCounts reports per-entity row counts for the health endpoint.
func (s *DirectoryService) EntityCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := s.repo.EntityCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count entities: %w", err)
	}
	return counts, nil
}
