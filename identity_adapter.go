package auth

// UserIdentity adapts a User into the Identity interface for token generation.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.EmailAddress
}

// Role returns the role derived from the admin flag.
func (u UserIdentity) Role() string {
	if u.user == nil {
		return ""
	}
	return u.user.Role()
}

// User returns the wrapped user.
func (u UserIdentity) User() *User {
	return u.user
}

var _ Identity = UserIdentity{}
