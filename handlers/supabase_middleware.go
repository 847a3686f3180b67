package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/execdash/execdash/services"
)

// Context keys set by the auth middleware.
const (
	ctxSession = "session"
	ctxUserID  = "user_id"
	ctxProfile = "profile"
)

// AccessTokenCookie carries the Supabase access token on page navigations,
// where the browser sends no Authorization header.
const AccessTokenCookie = "sb-access-token"

// TokenValidator validates Supabase access tokens.
type TokenValidator interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	ValidateSupabaseToken(ctx context.Context, token string) (*services.SupabaseClaims, error)
}

type SupabaseAuthMiddleware struct {
	SupabaseAuth TokenValidator
	log          logrus.FieldLogger
}

func NewSupabaseAuthMiddleware(supabaseAuth TokenValidator, log logrus.FieldLogger) *SupabaseAuthMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SupabaseAuthMiddleware{SupabaseAuth: supabaseAuth, log: log}
}

// SupabaseAuthMiddleware rejects requests without a valid bearer token.
func (m *SupabaseAuthMiddleware) SupabaseAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.SupabaseAuth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := m.SupabaseAuth.ValidateSupabaseToken(c.Request.Context(), token)
		if err != nil {
			m.log.WithError(err).Debug("AUTH FAILED - invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		m.setSession(c, claims)
		c.Next()
	}
}

// OptionalSupabaseAuth attaches a session when a valid token is present in
// the Authorization header or the access token cookie, and continues either way.
func (m *SupabaseAuthMiddleware) OptionalSupabaseAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.SupabaseAuth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			token, _ = c.Cookie(AccessTokenCookie)
		}
		if token != "" {
			if claims, err := m.SupabaseAuth.ValidateSupabaseToken(c.Request.Context(), token); err == nil {
				m.setSession(c, claims)
			}
		}
		c.Next()
	}
}

func (m *SupabaseAuthMiddleware) setSession(c *gin.Context, claims *services.SupabaseClaims) {
	sess := services.NewSession(claims)
	if sess == nil {
		return
	}
	c.Set(ctxSession, sess)
	c.Set(ctxUserID, sess.UserID)
	m.log.WithField("user_id", sess.UserID).Debug("AUTH SUCCESS")
}

// sessionFrom returns the request's session, or nil.
func sessionFrom(c *gin.Context) *services.Session {
	if v, ok := c.Get(ctxSession); ok {
		if sess, ok := v.(*services.Session); ok {
			return sess
		}
	}
	return nil
}
