package directory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Friiyous/reseau-social/internal/models"
)

// UnknownUser is shown when a handle has no matching account.
const UnknownUser = "Unknown user"

// UserGetter is the slice of the store the directory needs.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Profile is the public view of a user attached to messages and conversations.
type Profile struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	District    string `json:"district,omitempty"`
	Exists      bool   `json:"exists"`
}

// Directory resolves user handles to profiles. It never fails hard: a missing
// user or a lookup error yields the placeholder profile.
type Directory struct {
	users  UserGetter
	logger zerolog.Logger
}

// New creates a Directory backed by users.
func New(users UserGetter, logger zerolog.Logger) *Directory {
	return &Directory{
		users:  users,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// Resolve returns the profile for id.
func (d *Directory) Resolve(ctx context.Context, id int64) Profile {
	u, err := d.users.GetUser(ctx, id)
	if err != nil {
		d.logger.Warn().Err(err).Int64("user_id", id).Msg("user lookup failed")
		return placeholder(id)
	}
	if u == nil {
		return placeholder(id)
	}
	return FromUser(u)
}

// ResolveMany resolves every id once, however often it repeats in ids.
func (d *Directory) ResolveMany(ctx context.Context, ids ...int64) map[int64]Profile {
	profiles := make(map[int64]Profile, len(ids))
	for _, id := range ids {
		if _, ok := profiles[id]; ok {
			continue
		}
		profiles[id] = d.Resolve(ctx, id)
	}
	return profiles
}

// FromUser builds a profile from a stored user.
func FromUser(u *models.User) Profile {
	name := u.DisplayName()
	if name == "" {
		name = UnknownUser
	}
	return Profile{
		ID:          u.ID,
		DisplayName: name,
		Username:    u.Username,
		AvatarURL:   u.AvatarURL,
		District:    u.District,
		Exists:      true,
	}
}

func placeholder(id int64) Profile {
	return Profile{ID: id, DisplayName: UnknownUser}
}
