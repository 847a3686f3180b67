package services

import (
	"strings"
	"time"
)

// Session is the authenticated principal of one request. It is built from
// validated token claims and passed explicitly into every service call.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time

	// Identity provider metadata. AppMeta is admin-controlled and wins over
	// UserMeta when both carry the same hint.
	AppMeta  map[string]interface{}
	UserMeta map[string]interface{}
}

// NewSession builds a session from validated claims. nil claims give a nil session.
func NewSession(claims *SupabaseClaims) *Session {
	if claims == nil || claims.Subject == "" {
		return nil
	}
	s := &Session{
		UserID:   claims.Subject,
		Email:    claims.Email,
		AppMeta:  claims.AppMeta,
		UserMeta: claims.UserMeta,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}

// Hint returns the first non-empty string metadata value for any of keys.
func (s *Session) Hint(keys ...string) string {
	if s == nil {
		return ""
	}
	for _, key := range keys {
		for _, meta := range []map[string]interface{}{s.AppMeta, s.UserMeta} {
			if v, ok := meta[key].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}
