// Package handlers provides the HTTP transport for the directory: gin route
// handlers, the router, request middleware, and the server lifecycle. It
// translates between JSON payloads and the controller's domain models and
// maps domain errors onto HTTP statuses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gartstein/wastedir/internal/directory/auth"
	e "github.com/gartstein/wastedir/internal/directory/errors"
	"github.com/gartstein/wastedir/internal/directory/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DirectoryController defines the business logic interface the HTTP
// handlers invoke.
type DirectoryController interface {
	ListCompanies(ctx context.Context, filter models.CompanyFilter, page, perPage int) (*models.CompanyPage, error)
	GetCompany(ctx context.Context, id uint) (*models.Company, error)
	CreateCompany(ctx context.Context, userID uint, company *models.Company, serviceIDs []uint) (*models.Company, error)
	UpdateCompany(ctx context.Context, userID uint, update *models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, userID uint, id uint) error

	ListRegions(ctx context.Context) ([]models.Region, error)
	GetRegion(ctx context.Context, id uint) (*models.Region, error)
	CreateRegion(ctx context.Context, region *models.Region) error

	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id uint) (*models.Service, error)
	CreateService(ctx context.Context, service *models.Service) error

	RegisterUser(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)

	EntityCounts(ctx context.Context) (map[string]int64, error)
}

// DirectoryHandler serves the directory's HTTP routes on top of a
// DirectoryController.
type DirectoryHandler struct {
	service   DirectoryController
	jwtSecret string
	logger    *zap.Logger
}

// NewDirectoryHandler constructs a DirectoryHandler with the given service,
// token signing secret, and logger.
func NewDirectoryHandler(service DirectoryController, jwtSecret string, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		service:   service,
		jwtSecret: jwtSecret,
		logger:    logger.Named("http_handler"),
	}
}

// companyPayload is the JSON body of company create/update requests.
// Pointer fields distinguish "absent" from zero so PUT keeps its partial
// update semantics: only keys present in the body change the listing.
type companyPayload struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Address     *string `json:"address"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Website     *string `json:"website"`
	FoundedYear *int    `json:"founded_year"`
	LogoURL     *string `json:"logo_url"`
	RegionID    *uint   `json:"region_id"`
	ServiceIDs  *[]uint `json:"service_ids"`
}

// ListCompanies handles GET /api/companies. Public, filterable by region
// and service, paginated.
func (h *DirectoryHandler) ListCompanies(c *gin.Context) {
	page := intQuery(c, "page", models.DefaultPage)
	perPage := intQuery(c, "per_page", models.DefaultPerPage)

	var filter models.CompanyFilter
	if id, ok := uintQuery(c, "region_id"); ok {
		filter.RegionID = &id
	}
	if id, ok := uintQuery(c, "service_id"); ok {
		filter.ServiceID = &id
	}

	result, err := h.service.ListCompanies(c.Request.Context(), filter, page, perPage)
	if err != nil {
		h.respondError(c, err, "Company")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCompany handles GET /api/companies/:id. Public.
func (h *DirectoryHandler) GetCompany(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	company, err := h.service.GetCompany(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Company")
		return
	}
	c.JSON(http.StatusOK, company)
}

// CreateCompany handles POST /api/companies. The owner is always the
// authenticated caller, never taken from the payload.
func (h *DirectoryHandler) CreateCompany(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var payload companyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	company := &models.Company{}
	applyPayload(company, &payload)

	var serviceIDs []uint
	if payload.ServiceIDs != nil {
		serviceIDs = *payload.ServiceIDs
	}

	created, err := h.service.CreateCompany(c.Request.Context(), userID, company, serviceIDs)
	if err != nil {
		h.respondError(c, err, "Company")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Company created successfully",
		"company": created,
	})
}

// UpdateCompany handles PUT /api/companies/:id. Only the owner may update;
// fields absent from the body keep their stored values.
func (h *DirectoryHandler) UpdateCompany(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var payload companyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	update := &models.CompanyUpdate{
		ID:          id,
		Name:        payload.Name,
		Description: payload.Description,
		Address:     payload.Address,
		Phone:       payload.Phone,
		Email:       payload.Email,
		Website:     payload.Website,
		FoundedYear: payload.FoundedYear,
		LogoURL:     payload.LogoURL,
		RegionID:    payload.RegionID,
		ServiceIDs:  payload.ServiceIDs,
	}

	updated, err := h.service.UpdateCompany(c.Request.Context(), userID, update)
	if err != nil {
		if errors.Is(err, e.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to update this company"})
			return
		}
		h.respondError(c, err, "Company")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Company updated successfully",
		"company": updated,
	})
}

// DeleteCompany handles DELETE /api/companies/:id. Owner only.
func (h *DirectoryHandler) DeleteCompany(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCompany(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, e.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to delete this company"})
			return
		}
		h.respondError(c, err, "Company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Company deleted successfully"})
}

// ListRegions handles GET /api/regions.
func (h *DirectoryHandler) ListRegions(c *gin.Context) {
	regions, err := h.service.ListRegions(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Region")
		return
	}
	c.JSON(http.StatusOK, regions)
}

// GetRegion handles GET /api/regions/:id.
func (h *DirectoryHandler) GetRegion(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	region, err := h.service.GetRegion(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Region")
		return
	}
	c.JSON(http.StatusOK, region)
}

// CreateRegion handles POST /api/regions. Any authenticated user may create
// shared reference data; there is no ownership on regions.
func (h *DirectoryHandler) CreateRegion(c *gin.Context) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	region := &models.Region{Name: payload.Name}
	if err := h.service.CreateRegion(c.Request.Context(), region); err != nil {
		h.respondError(c, err, "Region")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Region created successfully",
		"region":  region,
	})
}

// ListServices handles GET /api/services.
func (h *DirectoryHandler) ListServices(c *gin.Context) {
	services, err := h.service.ListServices(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Service")
		return
	}
	c.JSON(http.StatusOK, services)
}

// GetService handles GET /api/services/:id.
func (h *DirectoryHandler) GetService(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	service, err := h.service.GetService(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Service")
		return
	}
	c.JSON(http.StatusOK, service)
}

// CreateService handles POST /api/services.
func (h *DirectoryHandler) CreateService(c *gin.Context) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	service := &models.Service{Name: payload.Name, Description: payload.Description}
	if err := h.service.CreateService(c.Request.Context(), service); err != nil {
		h.respondError(c, err, "Service")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Service created successfully",
		"service": service,
	})
}

// Health handles GET /api/health with per-entity row counts.
func (h *DirectoryHandler) Health(c *gin.Context) {
	counts, err := h.service.EntityCounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "API is running",
		"data":    counts,
	})
}

// applyPayload copies the present fields of a create payload onto a company.
func applyPayload(company *models.Company, payload *companyPayload) {
	if payload.Name != nil {
		company.Name = *payload.Name
	}
	if payload.Description != nil {
		company.Description = *payload.Description
	}
	if payload.Address != nil {
		company.Address = *payload.Address
	}
	if payload.Phone != nil {
		company.Phone = *payload.Phone
	}
	if payload.Email != nil {
		company.Email = *payload.Email
	}
	if payload.Website != nil {
		company.Website = *payload.Website
	}
	if payload.FoundedYear != nil {
		company.FoundedYear = *payload.FoundedYear
	}
	if payload.LogoURL != nil {
		company.LogoURL = *payload.LogoURL
	}
	if payload.RegionID != nil {
		company.RegionID = *payload.RegionID
	}
}

// respondError maps domain errors to HTTP statuses and JSON error bodies.
// resource names the entity for not-found and conflict messages.
func (h *DirectoryHandler) respondError(c *gin.Context, err error, resource string) {
	switch {
	case errors.Is(err, e.ErrRegionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
	case errors.Is(err, e.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	case errors.Is(err, e.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
	case errors.Is(err, e.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": resource + " with this name already exists"})
	case errors.Is(err, e.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// idParam parses the :id path parameter, responding 404 on garbage so the
// route behaves like a miss rather than a malformed request.
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func uintQuery(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(value), true
}
