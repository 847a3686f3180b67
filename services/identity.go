package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/execdash/execdash/db"
	"github.com/execdash/execdash/store"
)

// IdentityService resolves a session to its application profile,
// provisioning the profile on first login.
type IdentityService struct {
	profiles     store.ProfileRepository
	defaultOrgID string
	log          logrus.FieldLogger
}

// NewIdentityService creates an IdentityService. Profiles provisioned
// without an org hint land in db.DefaultOrgID.
func NewIdentityService(profiles store.ProfileRepository, log logrus.FieldLogger) *IdentityService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &IdentityService{
		profiles:     profiles,
		defaultOrgID: db.DefaultOrgID,
		log:          log.WithField("component", "identity"),
	}
}

// WithDefaultOrg overrides the organization given to profiles without an org hint.
func (s *IdentityService) WithDefaultOrg(orgID string) *IdentityService {
	if orgID != "" {
		s.defaultOrgID = orgID
	}
	return s
}

// GetCurrentProfile returns the caller's profile, creating it from the
// session's metadata hints when it does not exist yet. It returns nil when
// there is no session or the profile cannot be read or created.
func (s *IdentityService) GetCurrentProfile(ctx context.Context, sess *Session) *db.Profile {
	if sess == nil || sess.UserID == "" {
		return nil
	}

	profile, err := s.profiles.Get(ctx, sess.UserID)
	if err == nil {
		return profile
	}
	if !isNotFound(err) {
		s.log.WithError(err).WithField("user_id", sess.UserID).Error("Failed to load profile")
		return nil
	}

	candidate := s.profileFromHints(sess)
	if err := s.profiles.Create(ctx, candidate); err != nil {
		s.log.WithError(err).WithField("user_id", sess.UserID).Error("Failed to provision profile")
		return nil
	}

	// Re-read: a concurrent first login may have inserted a different row.
	profile, err = s.profiles.Get(ctx, sess.UserID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", sess.UserID).Error("Failed to read provisioned profile")
		return nil
	}
	s.log.WithFields(logrus.Fields{
		"user_id": profile.UserID,
		"org_id":  profile.OrgID,
		"role":    profile.Role,
	}).Info("Provisioned profile on first login")
	return profile
}

func (s *IdentityService) profileFromHints(sess *Session) *db.Profile {
	role, err := db.ParseRole(strings.ToLower(sess.Hint("role", "app_role")))
	if err != nil {
		role = db.RoleStaff
	}

	orgID := sess.Hint("org_id", "organization_id")
	if orgID == "" {
		orgID = s.defaultOrgID
	}

	return &db.Profile{
		UserID:      sess.UserID,
		OrgID:       orgID,
		Role:        role,
		DisplayName: displayName(sess),
		Email:       sess.Email,
	}
}

// displayName picks the first available of display_name, full_name, name,
// the title-cased local part of the e-mail, and "User".
func displayName(sess *Session) string {
	if name := sess.Hint("display_name", "full_name", "name"); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(sess.Email, "@"); ok && local != "" {
		local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
		return cases.Title(language.Und).String(strings.Join(strings.Fields(local), " "))
	}
	return "User"
}
