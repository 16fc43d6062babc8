package handlers

import (
	"github.com/gartstein/wastedir/internal/directory/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the directory routes. Reads are public; every mutation
// sits behind the bearer-token middleware.
func NewRouter(h *DirectoryHandler, jwtSecret string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)

		api.GET("/companies", h.ListCompanies)
		api.GET("/companies/:id", h.GetCompany)
		api.GET("/regions", h.ListRegions)
		api.GET("/regions/:id", h.GetRegion)
		api.GET("/services", h.ListServices)
		api.GET("/services/:id", h.GetService)

		protected := api.Group("", auth.RequireAuth(jwtSecret))
		{
			protected.POST("/companies", h.CreateCompany)
			protected.PUT("/companies/:id", h.UpdateCompany)
			protected.DELETE("/companies/:id", h.DeleteCompany)
			protected.POST("/regions", h.CreateRegion)
			protected.POST("/services", h.CreateService)
		}
	}
	return router
}
