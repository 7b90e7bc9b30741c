package http

import (
	"context"
	"net/http"
	"time"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/tenancy"

	"github.com/gin-gonic/gin"
)

type countryRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type countryResponse struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
}

func toCountryResponse(c domain.Country) countryResponse {
	return countryResponse{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		CreatedBy:   c.CreatedBy,
		UpdatedAt:   c.UpdatedAt,
		UpdatedBy:   c.UpdatedBy,
	}
}

func (s *Server) handleListCountries(c *gin.Context) {
	countries, err := s.countries.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]countryResponse, 0, len(countries))
	for _, country := range countries {
		out = append(out, toCountryResponse(country))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetCountry(c *gin.Context) {
	country, err := s.countries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCountryResponse(country))
}

func (s *Server) handleCreateCountry(c *gin.Context) {
	var req countryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid json body", nil)
		return
	}
	country, err := s.countries.Create(c.Request.Context(), domain.CountryInput(req), actor(c.Request.Context()))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCountryResponse(country))
}

func (s *Server) handleUpdateCountry(c *gin.Context) {
	var req countryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid json body", nil)
		return
	}
	country, err := s.countries.Update(c.Request.Context(), c.Param("id"), domain.CountryInput(req), actor(c.Request.Context()))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCountryResponse(country))
}

func (s *Server) handleDeleteCountry(c *gin.Context) {
	if err := s.countries.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleTenant(c *gin.Context) {
	tenant, err := tenancy.RequireTenant(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	schema, err := s.tenantInfo.CurrentSchema(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": tenant.String(), "schema": schema})
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": "no-db"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "mode": "db"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": "db"})
}

// actor names the caller in audit columns: the display name when the token
// carries one, the subject otherwise.
func actor(ctx context.Context) string {
	principal, _ := domain.PrincipalFromContext(ctx)
	if name, _ := principal.RawClaims["name"].(string); name != "" {
		return name
	}
	if principal.Subject != "" {
		return principal.Subject
	}
	return "anonymous"
}
