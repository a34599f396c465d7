package csvio

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/evanmorse/careertrack/internal/user"
)

func newTestRepo(t *testing.T) *user.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := user.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return user.NewRepository(db)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(to, subject, text, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

func TestImportCreatesAccounts(t *testing.T) {
	repo := newTestRepo(t)
	notifier := &fakeNotifier{}
	im := NewImporter(repo, notifier)

	input := strings.Join([]string{
		"name,email,currentRole,experience,skills",
		"Alice,alice@example.com,Engineer,Senior Level,Go;SQL",
		"Bob,bob@example.com,,,",
	}, "\n")

	count, err := im.Import(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 imported, got %d", count)
	}

	alice, err := repo.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("find alice: %v", err)
	}
	if alice.CurrentRole != "Engineer" || len(alice.Skills) != 2 {
		t.Errorf("unexpected alice %+v", alice)
	}
	if alice.PasswordHash == "" {
		t.Error("expected a hashed temporary password")
	}

	bob, err := repo.FindByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("find bob: %v", err)
	}
	if bob.CurrentRole != "Not specified" {
		t.Errorf("expected default role, got %q", bob.CurrentRole)
	}
	if bob.Experience != "Entry Level" {
		t.Errorf("expected default experience, got %q", bob.Experience)
	}

	if len(notifier.sent) != 2 {
		t.Errorf("expected 2 welcome mails, got %d", len(notifier.sent))
	}
}

func TestImportSkipsExistingAndBlankRows(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Create(context.Background(), &user.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	im := NewImporter(repo, nil)
	input := strings.Join([]string{
		"name,email",
		"Alice,alice@example.com",
		",missing-name@example.com",
		"No Email,",
		"Carol,carol@example.com",
	}, "\n")

	count, err := im.Import(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only carol imported, got %d", count)
	}
}

func TestImportHeaderCaseInsensitive(t *testing.T) {
	repo := newTestRepo(t)
	im := NewImporter(repo, nil)

	input := "Name,EMAIL,CurrentRole\nDana,dana@example.com,Designer\n"
	count, err := im.Import(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import error: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 imported, got %d", count)
	}
}

func TestImportMissingHeader(t *testing.T) {
	repo := newTestRepo(t)
	im := NewImporter(repo, nil)

	_, err := im.Import(context.Background(), strings.NewReader("name,role\nAlice,Engineer\n"))
	if !errors.Is(err, ErrMissingHeader) {
		t.Errorf("expected ErrMissingHeader, got %v", err)
	}
}

func TestExport(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Create(context.Background(), &user.User{
		Name: "Alice", Email: "alice@example.com", PasswordHash: "x",
		CurrentRole: "Engineer", Experience: "Senior Level", Skills: []string{"Go", "SQL"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.Create(context.Background(), &user.User{
		Name: "Admin", Email: "admin@example.com", PasswordHash: "x", Role: user.RoleAdmin,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	var buf bytes.Buffer
	if err := Export(context.Background(), repo, &buf); err != nil {
		t.Fatalf("export error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row (admins excluded), got %d rows", len(rows))
	}
	if rows[0][0] != "Name" || rows[0][1] != "Email" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "Alice" || rows[1][4] != "Go;SQL" {
		t.Errorf("unexpected row %v", rows[1])
	}
}
