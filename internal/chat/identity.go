package chat

// AdminRoom is the singleton room every administrator connection joins.
const AdminRoom = "admins"

// UserRoom returns the per-user room name for a user ID.
func UserRoom(userID string) string {
	return "user_" + userID
}

// Role is the logical role a connection authenticates as. Identity is
// resolved by the auth layer before a connection joins; it is not
// re-validated here.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Identity is the (user, role) pair a connection is bound to. One
// identity may own several simultaneous connections.
type Identity struct {
	UserID string
	Role   Role
}

// Rooms returns the rooms implied by the identity. Membership is derived
// from the role alone and is never user-requested.
func (id Identity) Rooms() []string {
	if id.Role == RoleAdmin {
		return []string{AdminRoom}
	}
	return []string{UserRoom(id.UserID)}
}
