package domain

// Role is the authorization level of a caller, derived from its credentials.
type Role int

const (
	// Unauthenticated means no participant matched the login/password pair.
	Unauthenticated Role = iota
	// RegisteredUser is a participant without elevated privilege.
	RegisteredUser
	// Organizer is a participant with an organiser row.
	Organizer
)

func (r Role) String() string {
	switch r {
	case RegisteredUser:
		return "user"
	case Organizer:
		return "organizer"
	}
	return "unauthenticated"
}
