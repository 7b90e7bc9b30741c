package http

import (
	"errors"

	"github.com/OussamaEt-taghy/soficosmos/internal/domain"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/claims"
	"github.com/OussamaEt-taghy/soficosmos/internal/infra/auth/guard"
	"github.com/OussamaEt-taghy/soficosmos/internal/tenancy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// tenantScope gives the request its own tenant cell and clears it on the way
// out, whether the chain returns, aborts or panics.
func (s *Server) tenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, release := tenancy.Scope(c.Request.Context())
		defer release()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// tenantResolution reads the organization claim from the bearer token and
// binds it to the request. It never touches the database.
func (s *Server) tenantResolution() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := claims.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			s.writeError(c, &domain.InvalidTenantError{Reason: "missing bearer token"})
			return
		}
		raw, err := s.decoder.Decode(token)
		if err != nil {
			s.logger.Debug("bearer token rejected", zap.Error(err))
			s.writeError(c, &domain.InvalidTenantError{Reason: "malformed bearer token"})
			return
		}
		tenant, err := s.extractor.Tenant(raw)
		if err != nil {
			s.writeError(c, err)
			return
		}
		cell := tenancy.FromContext(c.Request.Context())
		if cell == nil {
			s.writeError(c, domain.ErrTenantNotResolved)
			return
		}
		cell.Set(tenant)

		principal := s.extractor.Principal(raw)
		c.Request = c.Request.WithContext(domain.WithPrincipal(c.Request.Context(), principal))
		c.Set(tenantKey, tenant.String())
		c.Next()
	}
}

var errGuardMissing = errors.New("authorization guard is not configured")

// guarded rejects the request unless the caller may perform op.
func (s *Server) guarded(op guard.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.guard == nil {
			s.writeError(c, errGuardMissing)
			return
		}
		if err := s.guard.Check(c.Request.Context(), op); err != nil {
			s.writeError(c, err)
			return
		}
		c.Next()
	}
}
