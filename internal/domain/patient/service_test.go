package patient

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return p, nil
}

func (m *mockRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Patient, error) {
	for _, p := range m.patients {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, errors.New("no rows")
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		if name, ok := params["name"]; ok {
			if !strings.Contains(strings.ToLower(p.FirstName+" "+p.LastName), strings.ToLower(name)) {
				continue
			}
		}
		items = append(items, p)
	}
	return items, len(items), nil
}

func TestCreate_RequiresNames(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.Create(context.Background(), &Patient{LastName: "Doe", Email: "a@b.c"}); err == nil {
		t.Error("expected error for missing first_name")
	}
	if err := svc.Create(context.Background(), &Patient{FirstName: "Jane", Email: "a@b.c"}); err == nil {
		t.Error("expected error for missing last_name")
	}
	if err := svc.Create(context.Background(), &Patient{FirstName: "Jane", LastName: "Doe"}); err == nil {
		t.Error("expected error for missing email")
	}
}

func TestCreate_TrimsWhitespace(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &Patient{FirstName: "  Jane ", LastName: " Doe ", Email: "jane@example.com"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FirstName != "Jane" || p.LastName != "Doe" {
		t.Errorf("names not trimmed: %q %q", p.FirstName, p.LastName)
	}
	if p.FullName() != "Jane Doe" {
		t.Errorf("unexpected full name: %s", p.FullName())
	}
}

func TestSearch_ByName(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	svc.Create(context.Background(), &Patient{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"})
	svc.Create(context.Background(), &Patient{FirstName: "John", LastName: "Smith", Email: "john@example.com"})

	items, total, err := svc.Search(context.Background(), map[string]string{"name": "doe"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected 1 match, got %d", total)
	}
}
