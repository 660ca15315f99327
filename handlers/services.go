package handlers

import (
	"net/http"

	catalogRepo "homezy/database/repository/catalog"
	"homezy/utils"

	"github.com/gin-gonic/gin"
)

// ServicesHandler serves the public services catalog.
type ServicesHandler struct {
	Catalog catalogRepo.ServiceCatalog
}

// NewServicesHandler creates a ServicesHandler.
func NewServicesHandler(catalog catalogRepo.ServiceCatalog) *ServicesHandler {
	return &ServicesHandler{Catalog: catalog}
}

// ListServices returns active catalog entries, optionally by category.
func (h *ServicesHandler) ListServices(c *gin.Context) {
	services, err := h.Catalog.ListActive(c.Request.Context(), c.Query("category"))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list services", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// GetService returns one catalog entry.
func (h *ServicesHandler) GetService(c *gin.Context) {
	service, err := h.Catalog.GetByID(c.Request.Context(), c.Param("serviceID"))
	if err != nil {
		if err == catalogRepo.ErrServiceNotFound {
			utils.JSONError(c, http.StatusNotFound, "service not found", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch service", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": service})
}
