package controller

import (
	"context"
	"errors"
	"sync"
	"testing"

	e "github.com/gartstein/wastedir/internal/directory/errors"
	"github.com/gartstein/wastedir/internal/directory/events"
	"github.com/gartstein/wastedir/internal/directory/models"
	"github.com/gartstein/wastedir/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockRepository implements the Repository interface for testing.
type MockRepository struct {
	findCompanies       func(context.Context, models.CompanyFilter, int, int) ([]models.Company, int64, error)
	getCompany          func(context.Context, uint) (*models.Company, error)
	createCompany       func(context.Context, *models.Company) error
	updateCompany       func(context.Context, *models.CompanyUpdate) error
	deleteCompany       func(context.Context, uint) error
	listRegions         func(context.Context) ([]models.Region, error)
	getRegion           func(context.Context, uint) (*models.Region, error)
	createRegion        func(context.Context, *models.Region) error
	regionExistsByName  func(context.Context, string) (bool, error)
	listServices        func(context.Context) ([]models.Service, error)
	getService          func(context.Context, uint) (*models.Service, error)
	createService       func(context.Context, *models.Service) error
	serviceExistsByName func(context.Context, string) (bool, error)
	findServicesByIDs   func(context.Context, []uint) ([]models.Service, error)
	createUser          func(context.Context, *models.User) error
	getUserByUsername   func(context.Context, string) (*models.User, error)
	userExists          func(context.Context, string, string) (bool, error)
	entityCounts        func(context.Context) (map[string]int64, error)
}

func (m *MockRepository) FindCompanies(ctx context.Context, f models.CompanyFilter, page, perPage int) ([]models.Company, int64, error) {
	return m.findCompanies(ctx, f, page, perPage)
}

func (m *MockRepository) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	return m.getCompany(ctx, id)
}

func (m *MockRepository) CreateCompany(ctx context.Context, c *models.Company) error {
	return m.createCompany(ctx, c)
}

func (m *MockRepository) UpdateCompany(ctx context.Context, u *models.CompanyUpdate) error {
	return m.updateCompany(ctx, u)
}

func (m *MockRepository) DeleteCompany(ctx context.Context, id uint) error {
	return m.deleteCompany(ctx, id)
}

func (m *MockRepository) ListRegions(ctx context.Context) ([]models.Region, error) {
	return m.listRegions(ctx)
}

func (m *MockRepository) GetRegion(ctx context.Context, id uint) (*models.Region, error) {
	return m.getRegion(ctx, id)
}

func (m *MockRepository) CreateRegion(ctx context.Context, r *models.Region) error {
	return m.createRegion(ctx, r)
}

func (m *MockRepository) RegionExistsByName(ctx context.Context, name string) (bool, error) {
	return m.regionExistsByName(ctx, name)
}

func (m *MockRepository) ListServices(ctx context.Context) ([]models.Service, error) {
	return m.listServices(ctx)
}

func (m *MockRepository) GetService(ctx context.Context, id uint) (*models.Service, error) {
	return m.getService(ctx, id)
}

func (m *MockRepository) CreateService(ctx context.Context, s *models.Service) error {
	return m.createService(ctx, s)
}

func (m *MockRepository) ServiceExistsByName(ctx context.Context, name string) (bool, error) {
	return m.serviceExistsByName(ctx, name)
}

func (m *MockRepository) FindServicesByIDs(ctx context.Context, ids []uint) ([]models.Service, error) {
	return m.findServicesByIDs(ctx, ids)
}

func (m *MockRepository) CreateUser(ctx context.Context, u *models.User) error {
	return m.createUser(ctx, u)
}

func (m *MockRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.getUserByUsername(ctx, username)
}

func (m *MockRepository) UserExists(ctx context.Context, username, email string) (bool, error) {
	return m.userExists(ctx, username, email)
}

func (m *MockRepository) EntityCounts(ctx context.Context) (map[string]int64, error) {
	return m.entityCounts(ctx)
}

func (m *MockRepository) Close() error {
	return nil
}

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu             sync.Mutex
	producedEvents []events.EventType
	wg             *sync.WaitGroup
}

// Produce records the event and signals the wait group.
func (m *MockProducer) Produce(eventType events.EventType, _ *models.Company) {
	m.mu.Lock()
	m.producedEvents = append(m.producedEvents, eventType)
	m.mu.Unlock()
	if m.wg != nil {
		m.wg.Done()
	}
}

func (m *MockProducer) Events() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.EventType(nil), m.producedEvents...)
}

func TestDirectoryService_ListCompanies(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		total       int64
		expectPage  int
		expectPer   int
		expectPages int
	}{
		{name: "defaults applied", page: 0, perPage: -3, total: 25, expectPage: 1, expectPer: 10, expectPages: 3},
		{name: "exact division", page: 2, perPage: 5, total: 20, expectPage: 2, expectPer: 5, expectPages: 4},
		{name: "remainder rounds up", page: 1, perPage: 10, total: 21, expectPage: 1, expectPer: 10, expectPages: 3},
		{name: "empty result", page: 1, perPage: 10, total: 0, expectPage: 1, expectPer: 10, expectPages: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			mockRepo := &MockRepository{
				findCompanies: func(_ context.Context, _ models.CompanyFilter, page, perPage int) ([]models.Company, int64, error) {
					assert.Equal(t, tt.expectPage, page)
					assert.Equal(t, tt.expectPer, perPage)
					return nil, tt.total, nil
				},
			}
			service := NewDirectoryService(mockRepo, &MockProducer{}, logger)

			result, err := service.ListCompanies(context.Background(), models.CompanyFilter{}, tt.page, tt.perPage)
			require.NoError(t, err)
			assert.Equal(t, tt.total, result.Total)
			assert.Equal(t, tt.expectPages, result.Pages)
			assert.Equal(t, tt.expectPage, result.Page)
			assert.Equal(t, tt.expectPer, result.PerPage)
			assert.NotNil(t, result.Companies, "companies must serialize as a list, never null")
		})
	}
}

func TestDirectoryService_CreateCompany(t *testing.T) {
	region := &models.Region{ID: 3, Name: "North"}
	recycling := models.Service{ID: 7, Name: "Recycling"}

	tests := []struct {
		name          string
		input         *models.Company
		serviceIDs    []uint
		mockSetup     func(*MockRepository)
		expectedError error
		checkCreated  func(*testing.T, *models.Company)
	}{
		{
			name:       "successful creation stamps owner and drops unknown services",
			input:      &models.Company{Name: "EcoWaste", RegionID: 3, UserID: 999},
			serviceIDs: []uint{7, 999999},
			mockSetup: func(mr *MockRepository) {
				mr.getRegion = func(_ context.Context, id uint) (*models.Region, error) {
					assert.EqualValues(t, 3, id)
					return region, nil
				}
				mr.findServicesByIDs = func(_ context.Context, ids []uint) ([]models.Service, error) {
					assert.Equal(t, []uint{7, 999999}, ids)
					return []models.Service{recycling}, nil
				}
				mr.createCompany = func(_ context.Context, c *models.Company) error {
					c.ID = 42
					return nil
				}
				mr.getCompany = func(_ context.Context, id uint) (*models.Company, error) {
					return &models.Company{ID: id, Name: "EcoWaste", UserID: 1, RegionID: 3, Services: []models.Service{recycling}}, nil
				}
			},
			checkCreated: func(t *testing.T, created *models.Company) {
				assert.EqualValues(t, 42, created.ID)
				assert.EqualValues(t, 1, created.UserID, "owner must come from the identity, not the payload")
				require.Len(t, created.Services, 1)
				assert.EqualValues(t, 7, created.Services[0].ID)
			},
		},
		{
			name:          "missing name",
			input:         &models.Company{RegionID: 3},
			mockSetup:     func(_ *MockRepository) {},
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "missing region",
			input:         &models.Company{Name: "EcoWaste"},
			mockSetup:     func(_ *MockRepository) {},
			expectedError: e.ErrInvalidInput,
		},
		{
			name:  "region does not resolve",
			input: &models.Company{Name: "EcoWaste", RegionID: 404},
			mockSetup: func(mr *MockRepository) {
				mr.getRegion = func(_ context.Context, _ uint) (*models.Region, error) {
					return nil, e.ErrNotFound
				}
			},
			expectedError: e.ErrRegionNotFound,
		},
		{
			name:  "repository error",
			input: &models.Company{Name: "EcoWaste", RegionID: 3},
			mockSetup: func(mr *MockRepository) {
				mr.getRegion = func(_ context.Context, _ uint) (*models.Region, error) {
					return region, nil
				}
				mr.findServicesByIDs = func(_ context.Context, _ []uint) ([]models.Service, error) {
					return nil, nil
				}
				mr.createCompany = func(_ context.Context, _ *models.Company) error {
					return errors.New("database error")
				}
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewDirectoryService(mockRepo, mockProducer, logger)

			expectSuccess := tt.checkCreated != nil
			if expectSuccess {
				mockProducer.wg.Add(1)
			}

			created, err := service.CreateCompany(context.Background(), 1, tt.input, tt.serviceIDs)

			if expectSuccess {
				mockProducer.wg.Wait()
				require.NoError(t, err)
				tt.checkCreated(t, created)
				assert.Equal(t, []events.EventType{events.CompanyCreated}, mockProducer.Events())
				return
			}

			require.Error(t, err)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			}
			assert.Empty(t, mockProducer.Events(), "no event on failure")
		})
	}
}

func TestDirectoryService_UpdateCompany(t *testing.T) {
	stored := &models.Company{ID: 10, Name: "Stored", UserID: 1, RegionID: 3}

	tests := []struct {
		name          string
		callerID      uint
		update        *models.CompanyUpdate
		mockSetup     func(*MockRepository)
		expectedError error
	}{
		{
			name:     "successful partial update",
			callerID: 1,
			update:   &models.CompanyUpdate{ID: 10, Phone: utils.Ptr("555-0002")},
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ uint) (*models.Company, error) {
					return stored, nil
				}
				mr.updateCompany = func(_ context.Context, update *models.CompanyUpdate) error {
					assert.Nil(t, update.Name, "absent fields stay nil")
					assert.Equal(t, "555-0002", *update.Phone)
					return nil
				}
			},
		},
		{
			name:     "not found",
			callerID: 1,
			update:   &models.CompanyUpdate{ID: 404},
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ uint) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
			},
			expectedError: e.ErrNotFound,
		},
		{
			name:     "caller is not the owner",
			callerID: 2,
			update:   &models.CompanyUpdate{ID: 10, Name: utils.Ptr("Hijacked")},
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ uint) (*models.Company, error) {
					return stored, nil
				}
			},
			expectedError: e.ErrNotOwner,
		},
		{
			name:     "region reassignment must resolve",
			callerID: 1,
			update:   &models.CompanyUpdate{ID: 10, RegionID: utils.Ptr(uint(404))},
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ uint) (*models.Company, error) {
					return stored, nil
				}
				mr.getRegion = func(_ context.Context, _ uint) (*models.Region, error) {
					return nil, e.ErrNotFound
				}
			},
			expectedError: e.ErrRegionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewDirectoryService(mockRepo, mockProducer, logger)

			if tt.expectedError == nil {
				mockProducer.wg.Add(1)
			}

			_, err := service.UpdateCompany(context.Background(), tt.callerID, tt.update)

			if tt.expectedError == nil {
				mockProducer.wg.Wait()
				require.NoError(t, err)
				assert.Equal(t, []events.EventType{events.CompanyUpdated}, mockProducer.Events())
				return
			}
			assert.ErrorIs(t, err, tt.expectedError)
			assert.Empty(t, mockProducer.Events(), "no event when the update is rejected")
		})
	}
}

func TestDirectoryService_DeleteCompany(t *testing.T) {
	stored := &models.Company{ID: 10, Name: "Stored", UserID: 1}

	tests := []struct {
		name          string
		callerID      uint
		mockSetup     func(*MockRepository)
		expectedError error
	}{
		{
			name:     "successful deletion",
			callerID: 1,
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ uint) (*models.Company, error) {
					return stored, nil
				}
				mr.deleteCompany = func(_ context.Context, _ uint) error {
					return nil
				}
			},
		},
		{
			name:     "not found",
			callerID: 1,
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ uint) (*models.Company, error) {
					return nil, e.ErrNotFound
				}
			},
			expectedError: e.ErrNotFound,
		},
		{
			name:     "caller is not the owner",
			callerID: 2,
			mockSetup: func(mr *MockRepository) {
				mr.getCompany = func(_ context.Context, _ uint) (*models.Company, error) {
					return stored, nil
				}
			},
			expectedError: e.ErrNotOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			mockRepo := &MockRepository{}
			mockProducer := &MockProducer{wg: new(sync.WaitGroup)}
			tt.mockSetup(mockRepo)
			service := NewDirectoryService(mockRepo, mockProducer, logger)

			if tt.expectedError == nil {
				mockProducer.wg.Add(1)
			}

			err := service.DeleteCompany(context.Background(), tt.callerID, 10)

			if tt.expectedError == nil {
				mockProducer.wg.Wait()
				require.NoError(t, err)
				assert.Equal(t, []events.EventType{events.CompanyDeleted}, mockProducer.Events())
				return
			}
			assert.ErrorIs(t, err, tt.expectedError)
			assert.Empty(t, mockProducer.Events())
		})
	}
}

func TestDirectoryService_CreateRegion(t *testing.T) {
	tests := []struct {
		name          string
		region        *models.Region
		mockSetup     func(*MockRepository)
		expectedError error
	}{
		{
			name:   "successful creation",
			region: &models.Region{Name: "North"},
			mockSetup: func(mr *MockRepository) {
				mr.regionExistsByName = func(_ context.Context, _ string) (bool, error) {
					return false, nil
				}
				mr.createRegion = func(_ context.Context, r *models.Region) error {
					r.ID = 1
					return nil
				}
			},
		},
		{
			name:          "missing name",
			region:        &models.Region{},
			mockSetup:     func(_ *MockRepository) {},
			expectedError: e.ErrInvalidInput,
		},
		{
			name:   "duplicate name",
			region: &models.Region{Name: "North"},
			mockSetup: func(mr *MockRepository) {
				mr.regionExistsByName = func(_ context.Context, _ string) (bool, error) {
					return true, nil
				}
			},
			expectedError: e.ErrDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zaptest.NewLogger(t)
			mockRepo := &MockRepository{}
			tt.mockSetup(mockRepo)
			service := NewDirectoryService(mockRepo, &MockProducer{}, logger)

			err := service.CreateRegion(context.Background(), tt.region)
			if tt.expectedError == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestDirectoryService_CreateService(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mockRepo := &MockRepository{
		serviceExistsByName: func(_ context.Context, _ string) (bool, error) {
			return true, nil
		},
	}
	service := NewDirectoryService(mockRepo, &MockProducer{}, logger)

	err := service.CreateService(context.Background(), &models.Service{Name: "Recycling"})
	assert.ErrorIs(t, err, e.ErrDuplicateName)

	err = service.CreateService(context.Background(), &models.Service{})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestDirectoryService_RegisterAndAuthenticate(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var storedUser *models.User
	mockRepo := &MockRepository{
		userExists: func(_ context.Context, _, _ string) (bool, error) {
			return storedUser != nil, nil
		},
		createUser: func(_ context.Context, u *models.User) error {
			u.ID = 1
			storedUser = u
			return nil
		},
		getUserByUsername: func(_ context.Context, username string) (*models.User, error) {
			if storedUser == nil || storedUser.Username != username {
				return nil, e.ErrNotFound
			}
			return storedUser, nil
		},
	}
	service := NewDirectoryService(mockRepo, &MockProducer{}, logger)
	ctx := context.Background()

	user, err := service.RegisterUser(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ID)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash, "password must be stored hashed")

	// Duplicate registration conflicts.
	_, err = service.RegisterUser(ctx, "alice", "alice@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, e.ErrDuplicateName)

	// Missing fields are invalid.
	_, err = service.RegisterUser(ctx, "", "x@example.com", "pw")
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	// Round trip through bcrypt.
	authed, err := service.Authenticate(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = service.Authenticate(ctx, "alice", "wrong-pass")
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, err = service.Authenticate(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}
