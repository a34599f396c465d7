package user

import "time"

// Roles stored on a User row. The admin role is assigned out of band;
// registration always produces a regular user.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is a platform account with its career profile.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CurrentRole  string    `json:"current_role"`
	Experience   string    `json:"experience"`
	Skills       []string  `gorm:"serializer:json" json:"skills"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CareerEntry is one logged step in a user's career history.
type CareerEntry struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index" json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
}

// Activity is an audit-style record of something the user did.
type Activity struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index" json:"user_id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Activity types.
const (
	ActivityProfileUpdate = "profile_update"
	ActivityCareerUpdate  = "career_update"
)
