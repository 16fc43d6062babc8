// Package db implements the relational store for the directory using GORM.
// Multi-row writes (company plus its service associations) always run inside
// a single transaction so readers never observe a half-written listing.
package db

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/wastedir/internal/directory/errors"
	"github.com/gartstein/wastedir/internal/directory/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewRepositoryWithDB(db)
}

// NewRepositoryWithDB wraps an already-open GORM connection. Tests use it
// with an in-memory SQLite database.
func NewRepositoryWithDB(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Region{},
		&models.Service{},
		&models.Company{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{db: db}, nil
}

// companyQuery builds a fresh filtered query. A new chain per call keeps the
// count and page queries from polluting each other's conditions.
func (r *Repository) companyQuery(ctx context.Context, filter models.CompanyFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Company{})
	if filter.RegionID != nil {
		query = query.Where("companies.region_id = ?", *filter.RegionID)
	}
	if filter.ServiceID != nil {
		query = query.
			Joins("JOIN company_services ON company_services.company_id = companies.id").
			Where("company_services.service_id = ?", *filter.ServiceID)
	}
	return query
}

// FindCompanies returns one page of companies matching the filter plus the
// total match count before pagination. Region and service criteria combine
// as an intersection. Results are ordered by id so pages are disjoint.
func (r *Repository) FindCompanies(ctx context.Context, filter models.CompanyFilter, page, perPage int) ([]models.Company, int64, error) {
	var total int64
	if err := r.companyQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []models.Company
	err := r.companyQuery(ctx, filter).
		Preload("Region").
		Preload("Services").
		Order("companies.id").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&companies).Error
	if err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

func (r *Repository) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	result := r.db.WithContext(ctx).
		Preload("Region").
		Preload("Services").
		First(&company, "companies.id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &company, nil
}

// CreateCompany inserts the company row and its service association rows.
// company.Services must already be resolved rows; Omit("Services.*") keeps
// the create from touching the service rows themselves while still writing
// the join table, all inside one transaction.
func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Services.*").Create(company).Error
	})
}

// UpdateCompany applies the non-nil fields of the update and, when
// ServiceIDs is present, replaces the association wholesale with the subset
// of ids that resolve to existing services. One transaction covers both.
func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company models.Company
		if err := tx.First(&company, "id = ?", update.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return e.ErrNotFound
			}
			return err
		}

		if changes := update.Changes(); len(changes) > 0 {
			if err := tx.Model(&company).Updates(changes).Error; err != nil {
				return err
			}
		}

		if update.ServiceIDs != nil {
			var services []models.Service
			if len(*update.ServiceIDs) > 0 {
				if err := tx.Where("id IN ?", *update.ServiceIDs).Find(&services).Error; err != nil {
					return err
				}
			}
			assoc := tx.Model(&company).Association("Services")
			if len(services) == 0 {
				if err := assoc.Clear(); err != nil {
					return err
				}
			} else if err := assoc.Replace(services); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteCompany removes the company and its association rows transactionally.
func (r *Repository) DeleteCompany(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company models.Company
		if err := tx.First(&company, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return e.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&company).Association("Services").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Company{}, "id = ?", id).Error
	})
}

func (r *Repository) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	if err := r.db.WithContext(ctx).Order("id").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

func (r *Repository) GetRegion(ctx context.Context, id uint) (*models.Region, error) {
	var region models.Region
	result := r.db.WithContext(ctx).First(&region, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &region, nil
}

func (r *Repository) CreateRegion(ctx context.Context, region *models.Region) error {
	result := r.db.WithContext(ctx).Create(region)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateName
		}
		return result.Error
	}
	return nil
}

func (r *Repository) RegionExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Region{}).
		Where("name = ?", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := r.db.WithContext(ctx).Order("id").Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *Repository) GetService(ctx context.Context, id uint) (*models.Service, error) {
	var service models.Service
	result := r.db.WithContext(ctx).First(&service, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &service, nil
}

func (r *Repository) CreateService(ctx context.Context, service *models.Service) error {
	result := r.db.WithContext(ctx).Create(service)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateName
		}
		return result.Error
	}
	return nil
}

func (r *Repository) ServiceExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Service{}).
		Where("name = ?", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// FindServicesByIDs resolves ids to existing service rows. Unknown ids are
// absent from the result rather than an error; callers treat the subset as
// the effective service set.
func (r *Repository) FindServicesByIDs(ctx context.Context, ids []uint) ([]models.Service, error) {
	services := []models.Service{}
	if len(ids) == 0 {
		return services, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return e.ErrDuplicateName
		}
		return result.Error
	}
	return nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (r *Repository) UserExists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// EntityCounts reports row counts per entity for the health endpoint.
func (r *Repository) EntityCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 4)
	for name, model := range map[string]interface{}{
		"users":     &models.User{},
		"companies": &models.Company{},
		"regions":   &models.Region{},
		"services":  &models.Service{},
	} {
		var count int64
		if err := r.db.WithContext(ctx).Model(model).Count(&count).Error; err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
