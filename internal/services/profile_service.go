package services

import (
	"context"
	"fmt"
	"strings"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

// recentActivityLimit caps the audit entries shown on the profile page.
const recentActivityLimit = 10

// ProfileService keeps user profiles in step with sign-in identities.
type ProfileService struct {
	store  storage.ProfileStore
	audit  storage.AuditWriter
	logger *log.Logger
}

// NewProfileService serves profiles from store. Stores that also keep the
// audit trail back RecentActivity.
func NewProfileService(store storage.ProfileStore, logger *log.Logger) *ProfileService {
	if logger == nil {
		logger = log.Discard()
	}
	audit, _ := store.(storage.AuditWriter)
	return &ProfileService{store: store, audit: audit, logger: logger.WithComponent(log.ComponentAuth)}
}

// EnsureProfile stores the identity's email and avatar after sign-in. Names from
// the identity fill only blank stored names.
func (s *ProfileService) EnsureProfile(ctx context.Context, user auth.User) (core.Profile, error) {
	first, last := identityNames(user)
	p, err := s.store.UpsertProfile(ctx, core.Profile{
		UserID:    user.ID,
		FirstName: first,
		LastName:  last,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
	})
	if err != nil {
		return core.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	if p.NeedsNameCompletion() {
		s.logger.InfoContext(ctx, "Profile needs name completion", log.FieldUserID, user.ID)
	}
	return p, nil
}

// Profile returns the stored profile of userID.
func (s *ProfileService) Profile(ctx context.Context, userID string) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// RecentActivity returns the newest audit entries of userID, newest first.
func (s *ProfileService) RecentActivity(ctx context.Context, userID string) ([]storage.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	entries, err := s.audit.ListAudit(ctx, userID, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	return entries, nil
}

// CompleteProfile validates and saves both names.
func (s *ProfileService) CompleteProfile(ctx context.Context, userID, first, last string) (core.Profile, error) {
	first, last, err := core.NormalizeNames(first, last)
	if err != nil {
		return core.Profile{}, err
	}
	p, err := s.store.UpdateProfileNames(ctx, userID, first, last)
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile names: %w", err)
	}
	s.logger.InfoContext(ctx, "Profile names updated", log.FieldUserID, userID)
	return p, nil
}

// identityNames prefers the provider's given and family names and falls back
// to splitting the display name on its first space.
func identityNames(u auth.User) (string, string) {
	first, last := strings.TrimSpace(u.GivenName), strings.TrimSpace(u.FamilyName)
	if first != "" || last != "" {
		return first, last
	}
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return "", ""
	}
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}
