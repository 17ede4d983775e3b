package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"locova/internal/domain/engagement"
	"locova/internal/domain/gamification"
	"locova/internal/domain/identity"
	gamificationService "locova/internal/service/gamification"
)

const (
	// MaxDisplayNameLength is the longest display name accepted, in characters
	MaxDisplayNameLength = 50

	// MaxAvatarBytes bounds the size of an uploaded avatar
	MaxAvatarBytes = 5 << 20
)

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ObjectStore writes public objects such as avatars
type ObjectStore interface {
	// Put stores data at path and returns its public URL
	Put(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// View is a profile with its derived level progress
type View struct {
	gamification.Profile
	Progress gamificationService.Progress `json:"progress"`
}

// Service reads and updates user profiles
type Service struct {
	profiles gamification.ProfileStore
	objects  ObjectStore
	levels   *gamificationService.LevelTable
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates a new profile service
func NewService(profiles gamification.ProfileStore, objects ObjectStore, levels *gamificationService.LevelTable, logger *logrus.Logger) *Service {
	return &Service{
		profiles: profiles,
		objects:  objects,
		levels:   levels,
		logger:   logger,
		now:      time.Now,
	}
}

// Me returns the session user's profile. A user without a stored profile
// gets an empty one at zero points.
func (s *Service) Me(ctx context.Context, session identity.Session) (*View, error) {
	if !session.Authenticated() {
		return nil, engagement.ErrAuthRequired
	}

	p, err := s.profiles.GetProfile(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, gamification.ErrNotFound) {
			return nil, fmt.Errorf("error getting profile: %w", err)
		}
		p = &gamification.Profile{ID: session.UserID}
	}

	return s.view(*p), nil
}

// Get returns another user's profile
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting profile %s: %w", userID, err)
	}

	return s.view(*p), nil
}

// UpdateDisplayName sets the session user's display name
func (s *Service) UpdateDisplayName(ctx context.Context, session identity.Session, name string) (*View, error) {
	if !session.Authenticated() {
		return nil, engagement.ErrAuthRequired
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name must be 1 to %d characters", engagement.ErrInvalidInput, MaxDisplayNameLength)
	}

	if err := s.profiles.UpsertProfile(ctx, gamification.Profile{ID: session.UserID, DisplayName: &name}); err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	return s.Me(ctx, session)
}

// UploadAvatar stores the image at <user>/avatar-<unix>.<ext> and points the
// profile at its public URL.
func (s *Service) UploadAvatar(ctx context.Context, session identity.Session, contentType string, data []byte) (*View, error) {
	if !session.Authenticated() {
		return nil, engagement.ErrAuthRequired
	}

	ext, ok := avatarExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", engagement.ErrInvalidInput, contentType)
	}
	if len(data) == 0 || len(data) > MaxAvatarBytes {
		return nil, fmt.Errorf("%w: avatar must be between 1 byte and %d bytes", engagement.ErrInvalidInput, MaxAvatarBytes)
	}

	path := AvatarPath(session.UserID, ext, s.now())
	url, err := s.objects.Put(ctx, path, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("error uploading avatar: %w", err)
	}

	if err := s.profiles.UpsertProfile(ctx, gamification.Profile{ID: session.UserID, AvatarURL: &url}); err != nil {
		return nil, fmt.Errorf("error updating profile: %w", err)
	}

	s.logger.WithField("user_id", session.UserID).Info("Avatar updated")

	return s.Me(ctx, session)
}

// AvatarPath is the object path of an avatar uploaded at t
func AvatarPath(userID, ext string, t time.Time) string {
	return fmt.Sprintf("%s/avatar-%d.%s", userID, t.UnixMilli(), ext)
}

func (s *Service) view(p gamification.Profile) *View {
	return &View{Profile: p, Progress: s.levels.Progress(p.Points)}
}
