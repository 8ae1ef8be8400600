package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleMember is a regular account
	RoleMember UserRole = "member"
	// RoleAdmin is a staff account
	RoleAdmin UserRole = "admin"
)

// User is the user model. The email address is the login identifier.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	EmailAddress  string     `bun:"email_address,notnull,unique" json:"emailAddress"`
	FirstName     string     `bun:"first_name,notnull" json:"firstName"`
	LastName      string     `bun:"last_name,nullzero" json:"lastName,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	IsActive      bool       `bun:"is_active,notnull" json:"isActive"`
	IsAdmin       bool       `bun:"is_admin,notnull" json:"isAdmin"`
	ResetedAt     *time.Time `bun:"reseted_at,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt,omitempty"`
}

// IsStaff reports whether the user can access staff only features
func (u *User) IsStaff() bool {
	return u.IsAdmin
}

// Role maps the admin flag to a role name
func (u *User) Role() UserRole {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// PublicUser is the subset of user fields safe to return to clients
type PublicUser struct {
	FirstName    string `json:"firstName"`
	EmailAddress string `json:"emailAddress"`
}

// Public returns the shareable view of the user
func (u *User) Public() PublicUser {
	return PublicUser{
		FirstName:    u.FirstName,
		EmailAddress: u.EmailAddress,
	}
}

// MarkPasswordChanged stores a new hash and stamps the change time
func (u *User) MarkPasswordChanged(hash string, at time.Time) *User {
	u.PasswordHash = hash
	u.ResetedAt = &at
	u.UpdatedAt = &at
	return u
}
