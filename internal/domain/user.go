package domain

import "time"

// ScopeAdmin is the distinguished super-scope: it grants every guarded
// operation.
const ScopeAdmin = "admin"

// User is the persisted account record. Password holds the PBKDF2 digest of
// the plaintext combined with Salt, never the plaintext itself; both are
// rewritten together whenever the password changes.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UUID     string `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"type:varchar(512)" json:"-"`
	Salt     string `json:"-"`
	Scopes   []string `gorm:"type:jsonb;serializer:json" json:"scopes"`

	ResetToken   *string    `gorm:"uniqueIndex" json:"-"`
	ResetExpires *time.Time `json:"-"`

	ContactMethodVerificationToken        *string    `gorm:"uniqueIndex" json:"-"`
	ContactMethodVerificationTokenExpires *time.Time `json:"-"`
	ContactMethodToVerify                 *string    `json:"-"`
	VerifiedContactMethods                []string   `gorm:"type:jsonb;serializer:json" json:"verifiedContactMethods"`

	// Provider is set when the account is managed by an external identity
	// provider; such accounts never hold a local password.
	Provider *string `json:"provider,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// BasicUserInfo is the safe subset of a user returned by the API and carried
// in JWT claims.
type BasicUserInfo struct {
	ID       uint     `json:"id"`
	UUID     string   `json:"uuid"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Scopes   []string `json:"scopes"`
}

func (u *User) BasicInfo() BasicUserInfo {
	return BasicUserInfo{
		ID:       u.ID,
		UUID:     u.UUID,
		Username: u.Username,
		Email:    u.Email,
		Scopes:   u.Scopes,
	}
}

func (u *User) IsAdmin() bool {
	for _, s := range u.Scopes {
		if s == ScopeAdmin {
			return true
		}
	}
	return false
}

// IsVerified reports whether the account's email address has been confirmed.
func (u *User) IsVerified() bool {
	for _, m := range u.VerifiedContactMethods {
		if m == u.Email {
			return true
		}
	}
	return false
}

// IsExternal reports whether the account is managed by an external identity
// provider, which makes local password operations inapplicable.
func (u *User) IsExternal() bool { return u.Provider != nil && *u.Provider != "" }

// HasAnyScope checks scope-set membership: sets are OR-ed together and a set
// matches when the user holds every scope it names.
func (u *User) HasAnyScope(sets ...[]string) bool {
	held := make(map[string]bool, len(u.Scopes))
	for _, s := range u.Scopes {
		held[s] = true
	}
	for _, set := range sets {
		if len(set) == 0 {
			continue
		}
		ok := true
		for _, s := range set {
			if !held[s] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// RefreshToken is a persisted opaque credential allowing JWT renewal without
// re-authentication. It carries no expiry: a token stays valid until it is
// explicitly rejected or rotated away by single-device mode. Rows are
// cascade-deleted with their owning user.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }
