// Package csvio implements the admin bulk import and export of user
// accounts as CSV.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/evanmorse/careertrack/internal/auth"
	"github.com/evanmorse/careertrack/internal/user"
)

// ErrMissingHeader is returned when the CSV lacks the name or email column.
var ErrMissingHeader = errors.New("csv must have name and email columns")

// skillSeparator splits the skills column into individual skills.
const skillSeparator = ";"

// Notifier delivers the welcome mail for imported accounts.
type Notifier interface {
	Send(to, subject, text, html string) error
}

// Importer creates user accounts from an uploaded CSV. Expected columns:
// name, email, currentRole, experience, skills (header names matched
// case-insensitively). Rows whose email is already registered are
// skipped, everyone else gets a bcrypt-hashed temporary password and a
// welcome mail carrying it.
type Importer struct {
	repo     *user.Repository
	notifier Notifier
}

// NewImporter creates an Importer. The notifier may be nil.
func NewImporter(repo *user.Repository, notifier Notifier) *Importer {
	return &Importer{repo: repo, notifier: notifier}
}

// Import reads the CSV and creates accounts, returning how many were
// imported.
func (im *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	nameIdx, okName := cols["name"]
	emailIdx, okEmail := cols["email"]
	if !okName || !okEmail {
		return 0, ErrMissingHeader
	}

	field := func(row []string, key string) string {
		idx, ok := cols[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	imported := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read csv row: %w", err)
		}

		name := strings.TrimSpace(row[nameIdx])
		email := strings.TrimSpace(row[emailIdx])
		if name == "" || email == "" {
			continue
		}

		currentRole := field(row, "currentrole")
		if currentRole == "" {
			currentRole = "Not specified"
		}
		experience := field(row, "experience")
		if experience == "" {
			experience = "Entry Level"
		}
		var skills []string
		if raw := field(row, "skills"); raw != "" {
			skills = strings.Split(raw, skillSeparator)
		}

		tempPassword := auth.TempPassword()
		hash, err := auth.HashPassword(tempPassword)
		if err != nil {
			return imported, err
		}

		u := &user.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         user.RoleUser,
			CurrentRole:  currentRole,
			Experience:   experience,
			Skills:       skills,
			Status:       user.StatusActive,
		}
		if err := im.repo.Create(ctx, u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				continue
			}
			return imported, err
		}
		imported++

		if im.notifier != nil {
			text := fmt.Sprintf("Welcome %s! Your account has been created. Email: %s, Temporary Password: %s. Please change your password after first login.", name, email, tempPassword)
			html := fmt.Sprintf("<h2>Welcome %s!</h2><p>Your account has been created on our Career Tracking Platform.</p><p><strong>Email:</strong> %s<br><strong>Temporary Password:</strong> %s</p><p>Please change your password after first login.</p>", name, email, tempPassword)
			if err := im.notifier.Send(email, "Welcome to Career Tracking Platform", text, html); err != nil {
				log.Warn().Err(err).Str("email", email).Msg("csvio: welcome mail failed")
			}
		}
	}
	return imported, nil
}

// exportHeader is the column layout of the admin export.
var exportHeader = []string{"Name", "Email", "Current Role", "Experience", "Skills", "Status", "Created At"}

// Export writes all non-admin users as CSV.
func Export(ctx context.Context, repo *user.Repository, w io.Writer) error {
	users, err := repo.List(ctx, false)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, u := range users {
		row := []string{
			u.Name,
			u.Email,
			u.CurrentRole,
			u.Experience,
			strings.Join(u.Skills, skillSeparator),
			u.Status,
			u.CreatedAt.Format("2006-01-02"),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
