package identity

import "time"

const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// Member is a chat community member known to the game.
type Member struct {
	ID           string
	Name         string
	Roles        []string
	TokenVersion int
	CreatedAt    time.Time
	LastSeen     time.Time
}

// HasRole reports whether the member carries role.
func (m Member) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is what the chat adapter asserts about a member when it asks for a
// token.
type Profile struct {
	ID    string
	Name  string
	Roles []string
}
