package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/turdes/auth/internal/core/domain"
	"github.com/turdes/auth/internal/core/ports"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	err   error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) copyOf(u *domain.User) *domain.User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	return &c
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return r.copyOf(u), nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return r.copyOf(u), nil
}

func (r *memUserRepo) GetByIDAndRefreshToken(_ context.Context, id uuid.UUID, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok || !u.HasRefreshToken(token) {
		return nil, nil
	}
	return r.copyOf(u), nil
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = r.copyOf(user)
	return nil
}

func (r *memUserRepo) SetRefreshToken(_ context.Context, id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if u, ok := r.users[id]; ok {
		u.RefreshToken = &token
	}
	return nil
}

func (r *memUserRepo) SwapRefreshToken(_ context.Context, id uuid.UUID, oldToken, newToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	u, ok := r.users[id]
	if !ok || !u.HasRefreshToken(oldToken) {
		return false, nil
	}
	u.RefreshToken = &newToken
	return true, nil
}

func (r *memUserRepo) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if u, ok := r.users[id]; ok {
		u.RefreshToken = nil
	}
	return nil
}

func (r *memUserRepo) storedToken(id uuid.UUID) *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u.RefreshToken
	}
	return nil
}

// plainHasher keeps tests fast; the argon2 adapter has its own tests.
type plainHasher struct {
	verifyCalls int
}

func (h *plainHasher) Hash(password string) (string, error) {
	return "plain$" + password, nil
}

func (h *plainHasher) Verify(password, encodedHash string) (bool, error) {
	h.verifyCalls++
	if !strings.HasPrefix(encodedHash, "plain$") {
		return false, errors.New("unsupported hash")
	}
	return encodedHash == "plain$"+password, nil
}

type recordingAudit struct {
	entries []*domain.AuditEntry
	err     error
}

func (a *recordingAudit) Record(_ context.Context, entry *domain.AuditEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

type recordingPublisher struct {
	subjects []string
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	return nil
}

type stubGoogleVerifier struct {
	payload *ports.TokenPayload
	err     error
}

func (v *stubGoogleVerifier) Verify(_ context.Context, _ string, _ string) (*ports.TokenPayload, error) {
	return v.payload, v.err
}
