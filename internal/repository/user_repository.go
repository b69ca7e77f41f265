package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrDuplicate    = errors.New("username already taken")
	ErrInvalidInput = errors.New("user is missing an id or username")
)

// UserRepository keeps user accounts in memory for the life of the process
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*model.User
	byUsername map[string]string
}

// NewUserRepository creates a new UserRepository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*model.User),
		byUsername: make(map[string]string),
	}
}

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Create stores a new user. Usernames are unique case-insensitively.
func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	if user == nil || user.ID == "" || user.Username == "" {
		return ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := usernameKey(user.Username)
	if _, ok := r.byUsername[key]; ok {
		return ErrDuplicate
	}
	if _, ok := r.byID[user.ID]; ok {
		return ErrDuplicate
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byUsername[key] = user.ID
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	id, ok := r.byUsername[usernameKey(username)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// ExistsByUsername checks if a user with the given username exists
func (r *UserRepository) ExistsByUsername(_ context.Context, username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[usernameKey(username)]
	return ok
}

// UpdateLastLogin records a successful login
func (r *UserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = at
	if ip != "" {
		u.IP = ip
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *UserRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

// Count returns the number of registered users
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
