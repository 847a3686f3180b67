package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/authz"
	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/internal/metrics"
	"github.com/execdash/execdash/services"
)

const ctxGuardState = "guard_state"

// GuardMiddleware enforces route guards on page routes.
type GuardMiddleware struct {
	Identity *services.IdentityService
	log      logrus.FieldLogger
}

func NewGuardMiddleware(identity *services.IdentityService, log logrus.FieldLogger) *GuardMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GuardMiddleware{Identity: identity, log: log}
}

// Require lets the request through only when the caller's role is allowed by
// g. Page requests are redirected with the original path in ?from=; JSON
// requests get 401 or 403.
func (m *GuardMiddleware) Require(g authz.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		run := g.Start(c.Request.URL.RequestURI())
		c.Set(ctxGuardState, string(run.State()))

		var role *db.Role
		if p := m.Identity.GetCurrentProfile(c.Request.Context(), sessionFrom(c)); p != nil {
			role = &p.Role
			c.Set(ctxProfile, p)
		}

		decision := run.Settle(role)
		c.Set(ctxGuardState, string(decision.State))
		if decision.State == authz.GuardAuthorized {
			c.Next()
			return
		}

		metrics.GuardRedirects.WithLabelValues(g.Name, decision.RedirectTo).Inc()
		m.log.WithFields(logrus.Fields{
			"guard": g.Name,
			"from":  decision.From,
			"to":    decision.RedirectTo,
		}).Info("GUARD REDIRECT")

		if wantsJSON(c) {
			status := http.StatusForbidden
			if role == nil {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "access denied", "redirect_to": decision.Location()})
			return
		}
		c.Redirect(http.StatusFound, decision.Location())
		c.Abort()
	}
}
