package http

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/turdes/auth/internal/core/domain"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]domain.User)}
}

func (r *memUserRepo) find(match func(domain.User) bool) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found
		}
	}
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email }), nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id }), nil
}

func (r *memUserRepo) GetByIDAndRefreshToken(_ context.Context, id uuid.UUID, token string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id && u.HasRefreshToken(token) }), nil
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrAlreadyExists
		}
	}
	user.ID = uuid.New()
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) update(id uuid.UUID, fn func(*domain.User) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !fn(&u) {
		return false
	}
	r.users[id] = u
	return true
}

func (r *memUserRepo) SetRefreshToken(_ context.Context, id uuid.UUID, token string) error {
	r.update(id, func(u *domain.User) bool { u.RefreshToken = &token; return true })
	return nil
}

func (r *memUserRepo) SwapRefreshToken(_ context.Context, id uuid.UUID, oldToken, newToken string) (bool, error) {
	return r.update(id, func(u *domain.User) bool {
		if !u.HasRefreshToken(oldToken) {
			return false
		}
		u.RefreshToken = &newToken
		return true
	}), nil
}

func (r *memUserRepo) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	r.update(id, func(u *domain.User) bool { u.RefreshToken = nil; return true })
	return nil
}

func (r *memUserRepo) delete(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("connection refused") }
