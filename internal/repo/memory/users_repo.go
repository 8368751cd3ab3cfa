package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/geocoder89/housepoints/internal/domain/user"
)

type UsersRepo struct {
	mu         sync.RWMutex
	byID       map[string]user.User
	byUsername map[string]string
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:       make(map[string]user.User),
		byUsername: make(map[string]string),
	}
}

func usernameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	u = u.Normalize()
	key := usernameKey(u.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[key]; taken {
		return user.User{}, user.ErrUsernameTaken
	}

	r.byID[u.ID] = u
	r.byUsername[key] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[usernameKey(username)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })

	return out, nil
}
