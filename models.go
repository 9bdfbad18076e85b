package chat

import (
	"time"

	"github.com/uptrace/bun"
)

// Theme names accepted by profile settings.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// NotificationSettings toggles the delivery channels a user accepts.
type NotificationSettings struct {
	InApp bool `json:"inApp"`
	Sound bool `json:"sound"`
	Push  bool `json:"push"`
}

// Settings holds per-user preferences stored on the profile record.
type Settings struct {
	Theme         string               `json:"theme"`
	Notifications NotificationSettings `json:"notifications"`
}

// DefaultSettings are applied to every new profile record.
func DefaultSettings() Settings {
	return Settings{
		Theme: ThemeLight,
		Notifications: NotificationSettings{
			InApp: true,
			Sound: true,
			Push:  true,
		},
	}
}

// Profile is the document-store record holding application-level user data,
// keyed by the vendor identity id. It parallels the vendor identity; the
// session store merges the two into a Session.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`

	ID             string     `bun:"id,pk" json:"id"`
	DisplayName    string     `bun:"display_name,notnull" json:"displayName"`
	Email          string     `bun:"email,notnull" json:"email"`
	PhotoURL       string     `bun:"photo_url" json:"photoURL,omitempty"`
	Bio            string     `bun:"bio" json:"bio,omitempty"`
	Provider       string     `bun:"provider" json:"provider,omitempty"`
	EmailVerified  bool       `bun:"email_verified" json:"emailVerified"`
	Friends        []string   `bun:"friends,type:jsonb" json:"friends"`
	FriendRequests []string   `bun:"friend_requests,type:jsonb" json:"friendRequests"`
	BlockedUsers   []string   `bun:"blocked_users,type:jsonb" json:"blockedUsers"`
	Settings       Settings   `bun:"settings,type:jsonb" json:"settings"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	LastLogin      *time.Time `bun:"last_login,nullzero" json:"lastLogin,omitempty"`
	LastActivity   *time.Time `bun:"last_activity,nullzero" json:"lastActivity,omitempty"`
}

// NewProfile builds the default record written at registration: empty
// friends, requests, and blocked sets, light theme, every notification
// channel enabled.
func NewProfile(identity Identity) *Profile {
	p := &Profile{
		Friends:        []string{},
		FriendRequests: []string{},
		BlockedUsers:   []string{},
		Settings:       DefaultSettings(),
	}

	if identity != nil {
		p.ID = identity.ID()
		p.Email = identity.Email()
		p.DisplayName = identity.DisplayName()
		p.PhotoURL = identity.PhotoURL()
		p.EmailVerified = identity.EmailVerified()
	}

	if p.DisplayName == "" {
		p.DisplayName = AnonymousDisplayName
	}

	return p
}

// HasFriend reports membership in the friends set.
func (p *Profile) HasFriend(id string) bool {
	return containsID(p.Friends, id)
}

// HasRequestFrom reports a pending friend request from the given user.
func (p *Profile) HasRequestFrom(id string) bool {
	return containsID(p.FriendRequests, id)
}

// HasBlocked reports membership in the blocked set.
func (p *Profile) HasBlocked(id string) bool {
	return containsID(p.BlockedUsers, id)
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Apply copies a sparse patch onto the record in memory. The store applies
// the same patch remotely; this keeps the local merge in step.
func (p *Profile) Apply(patch ProfilePatch) {
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.PhotoURL != nil {
		p.PhotoURL = *patch.PhotoURL
	}
	if patch.EmailVerified != nil {
		p.EmailVerified = *patch.EmailVerified
	}
	if patch.LastLogin != nil {
		p.LastLogin = patch.LastLogin
	}
	if patch.LastActivity != nil {
		p.LastActivity = patch.LastActivity
	}
}
