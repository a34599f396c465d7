package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("user already exists with this email")
)

// Repository handles user, career-history and activity persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a Repository over an opened gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &CareerEntry{}, &Activity{})
}

// Create inserts a new user. The caller supplies the hashed password.
func (r *Repository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = StatusActive
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// FindByEmail returns the user with the given email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByID returns the user with the given id.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile updates the editable profile fields and records a
// profile-update activity.
func (r *Repository) UpdateProfile(ctx context.Context, id, name, currentRole, experience string, skills []string) (*User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Name = name
	u.CurrentRole = currentRole
	u.Experience = experience
	u.Skills = skills
	u.UpdatedAt = time.Now().UTC()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(u).Error; err != nil {
			return err
		}
		return tx.Create(&Activity{
			ID:          uuid.NewString(),
			UserID:      id,
			Type:        ActivityProfileUpdate,
			Description: "Updated profile information",
			Timestamp:   time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// AddCareerEntry appends a career-history entry and records a
// career-update activity.
func (r *Repository) AddCareerEntry(ctx context.Context, userID, title, description, entryType string) (*CareerEntry, error) {
	if _, err := r.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	entry := &CareerEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Type:        entryType,
		Date:        time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if err := tx.Create(&Activity{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        ActivityCareerUpdate,
			Description: "Added career update: " + title,
			Timestamp:   time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		return tx.Model(&User{}).Where("id = ?", userID).Update("updated_at", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CareerHistory returns a user's career entries, oldest first.
func (r *Repository) CareerHistory(ctx context.Context, userID string) ([]CareerEntry, error) {
	var entries []CareerEntry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date asc").Find(&entries).Error
	return entries, err
}

// Activities returns a user's activity log, oldest first.
func (r *Repository) Activities(ctx context.Context, userID string) ([]Activity, error) {
	var activities []Activity
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp asc").Find(&activities).Error
	return activities, err
}

// List returns all non-admin users. When onlyActive is set, inactive
// accounts are filtered out.
func (r *Repository) List(ctx context.Context, onlyActive bool) ([]User, error) {
	q := r.db.WithContext(ctx).Where("role <> ?", RoleAdmin)
	if onlyActive {
		q = q.Where("status = ?", StatusActive)
	}
	var users []User
	err := q.Order("created_at asc").Find(&users).Error
	return users, err
}

// Delete removes a non-admin user together with their career history and
// activities. Admin accounts are never deletable.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND role <> ?", id, RoleAdmin).Delete(&User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("user_id = ?", id).Delete(&CareerEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", id).Delete(&Activity{}).Error
	})
}

// ActivityDigest is one recent activity joined with the user's name,
// used on the admin dashboard.
type ActivityDigest struct {
	UserName    string    `json:"user_name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Stats are the aggregate numbers shown on the admin dashboard.
type Stats struct {
	TotalUsers         int64            `json:"total_users"`
	ActiveUsers        int64            `json:"active_users"`
	TotalCareerChanges int64            `json:"total_career_changes"`
	RecentActivities   []ActivityDigest `json:"recent_activities"`
}

const recentActivityLimit = 10

// Stats computes the admin dashboard aggregates.
func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	db := r.db.WithContext(ctx)

	if err := db.Model(&User{}).Where("role <> ?", RoleAdmin).Count(&s.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&User{}).Where("role <> ? AND status = ?", RoleAdmin, StatusActive).Count(&s.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&CareerEntry{}).Count(&s.TotalCareerChanges).Error; err != nil {
		return nil, err
	}

	err := db.Model(&Activity{}).
		Select("users.name as user_name, activities.type, activities.description, activities.timestamp").
		Joins("JOIN users ON users.id = activities.user_id").
		Where("users.role <> ?", RoleAdmin).
		Order("activities.timestamp desc").
		Limit(recentActivityLimit).
		Scan(&s.RecentActivities).Error
	if err != nil {
		return nil, err
	}
	if s.RecentActivities == nil {
		s.RecentActivities = []ActivityDigest{}
	}
	return &s, nil
}
