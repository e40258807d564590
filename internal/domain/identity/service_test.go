package identity

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/mailer"
)

type mockUserRepo struct {
	users     map[uuid.UUID]*User
	lookupErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) Update(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.users, id)
	return nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(userID uuid.UUID, username, role string) (string, error) {
	return "token-for-" + username, nil
}

func newTestService(repo *mockUserRepo, mail *mailer.MockEmailSender) *Service {
	return NewService(repo, stubIssuer{}, mail, mailer.NewTemplateEngine(), zerolog.New(os.Stderr))
}

func TestRegister_CreatesInactiveUser(t *testing.T) {
	repo := newMockUserRepo()
	mail := &mailer.MockEmailSender{}
	svc := newTestService(repo, mail)

	u, err := svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != RolePatient {
		t.Errorf("expected default role patient, got %s", u.Role)
	}
	if u.IsActive {
		t.Error("new accounts must start inactive")
	}
	if u.PasswordHash == "s3cret-pass" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if len(mail.Calls()) != 1 {
		t.Errorf("expected 1 activation email, got %d", len(mail.Calls()))
	}
}

func TestRegister_RejectsDuplicateUsername(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mailer.MockEmailSender{})

	if _, err := svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := svc.Register(context.Background(), "jane", "other@example.com", "s3cret-pass", "")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegister_LookupFailurePropagates(t *testing.T) {
	repo := newMockUserRepo()
	mail := &mailer.MockEmailSender{}
	svc := newTestService(repo, mail)

	// A failed uniqueness lookup must not be read as "name available".
	repo.lookupErr = errors.New("connection refused")
	_, err := svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", "")
	if err == nil {
		t.Fatal("expected the lookup error to propagate")
	}
	if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
		t.Errorf("store failure must not masquerade as a taken name: %v", err)
	}
	if len(repo.users) != 0 {
		t.Error("no user should be created when the uniqueness check cannot run")
	}
	if len(mail.Calls()) != 0 {
		t.Error("no activation email should be sent")
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := newTestService(newMockUserRepo(), &mailer.MockEmailSender{})
	if _, err := svc.Register(context.Background(), "jane", "jane@example.com", "short", ""); err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestLogin_Succeeds(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mailer.MockEmailSender{})

	u, err := svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Activate(context.Background(), u.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	result, err := svc.Login(context.Background(), Credentials{Username: "jane", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token != "token-for-jane" {
		t.Errorf("unexpected token: %s", result.Token)
	}
}

func TestLogin_ByEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mailer.MockEmailSender{})

	u, _ := svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", "")
	svc.Activate(context.Background(), u.ID)

	if _, err := svc.Login(context.Background(), Credentials{Username: "jane@example.com", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("login by email failed: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mailer.MockEmailSender{})

	u, _ := svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", "")
	svc.Activate(context.Background(), u.ID)

	_, err := svc.Login(context.Background(), Credentials{Username: "jane", Password: "wrong-pass"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mailer.MockEmailSender{})

	svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", "")

	_, err := svc.Login(context.Background(), Credentials{Username: "jane", Password: "s3cret-pass"})
	if !errors.Is(err, ErrInactiveAccount) {
		t.Errorf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestService(repo, &mailer.MockEmailSender{})

	u, _ := svc.Register(context.Background(), "jane", "jane@example.com", "s3cret-pass", "")
	svc.Activate(context.Background(), u.ID)

	if err := svc.ChangePassword(context.Background(), u.ID, "wrong", "new-pass-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), u.ID, "s3cret-pass", "new-pass-123"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := svc.Login(context.Background(), Credentials{Username: "jane", Password: "new-pass-123"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}
