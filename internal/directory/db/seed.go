package db

import (
	"context"

	"github.com/gartstein/wastedir/internal/directory/models"
)

// Seed loads the demo fixtures: one user, five regions, six services and
// three companies with service associations. It is idempotent: a store
// that already holds users is left untouched. The caller supplies the
// password hash so the store stays ignorant of the hashing scheme.
func (r *Repository) Seed(ctx context.Context, passwordHash string) (bool, error) {
	var userCount int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&userCount).Error; err != nil {
		return false, err
	}
	if userCount > 0 {
		return false, nil
	}

	err := r.WithTransaction(ctx, func(repo *Repository) error {
		user := &models.User{
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: passwordHash,
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			return err
		}

		regions := make([]models.Region, 0, 5)
		for _, name := range []string{"North", "South", "East", "West", "Central"} {
			region := models.Region{Name: name}
			if err := repo.CreateRegion(ctx, &region); err != nil {
				return err
			}
			regions = append(regions, region)
		}

		services := make([]models.Service, 0, 6)
		for _, fixture := range []models.Service{
			{Name: "Residential Waste Collection", Description: "Regular collection of household waste"},
			{Name: "Commercial Waste Collection", Description: "Waste collection services for businesses"},
			{Name: "Recycling Services", Description: "Collection and processing of recyclable materials"},
			{Name: "Hazardous Waste Disposal", Description: "Safe disposal of hazardous materials"},
			{Name: "Green Waste Collection", Description: "Collection of garden and landscape waste"},
			{Name: "E-Waste Recycling", Description: "Recycling of electronic equipment"},
		} {
			service := fixture
			if err := repo.CreateService(ctx, &service); err != nil {
				return err
			}
			services = append(services, service)
		}

		companies := []models.Company{
			{
				Name:        "EcoWaste Solutions",
				Description: "Eco-friendly waste management solutions for residential and commercial clients",
				Address:     "123 Green St, Anytown, USA",
				Phone:       "555-123-4567",
				Email:       "info@ecowaste.example.com",
				Website:     "https://ecowaste.example.com",
				FoundedYear: 2010,
				LogoURL:     "https://via.placeholder.com/150",
				UserID:      user.ID,
				RegionID:    regions[0].ID,
				Services:    []models.Service{services[0], services[2], services[4]},
			},
			{
				Name:        "CleanCity Garbage",
				Description: "Full-service waste management company serving the metropolitan area",
				Address:     "456 Clean Ave, Metropolis, USA",
				Phone:       "555-987-6543",
				Email:       "contact@cleancity.example.com",
				Website:     "https://cleancity.example.com",
				FoundedYear: 1995,
				LogoURL:     "https://via.placeholder.com/150",
				UserID:      user.ID,
				RegionID:    regions[1].ID,
				Services:    []models.Service{services[0], services[1], services[3]},
			},
			{
				Name:        "GreenBin Recycling",
				Description: "Specialized in recycling services with a focus on sustainability",
				Address:     "789 Recycle Rd, Greenville, USA",
				Phone:       "555-456-7890",
				Email:       "hello@greenbin.example.com",
				Website:     "https://greenbin.example.com",
				FoundedYear: 2015,
				LogoURL:     "https://via.placeholder.com/150",
				UserID:      user.ID,
				RegionID:    regions[2].ID,
				Services:    []models.Service{services[2], services[4], services[5]},
			},
		}
		for i := range companies {
			if err := repo.CreateCompany(ctx, &companies[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
