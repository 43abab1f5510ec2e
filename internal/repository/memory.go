package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// MemoryUserRepo is the in-memory reference implementation of
// UserRepository. A single mutex serializes Save against itself, which gives
// the atomic uniqueness decision the contract requires. It backs the test
// suite and serves as a wiring default when no database is configured.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string // email -> id
	byName  map[string]string // username -> id
}

// NewMemoryUserRepo returns an empty in-memory repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    map[string]model.User{},
		byEmail: map[string]string{},
		byName:  map[string]string{},
	}
}

func (r *MemoryUserRepo) Save(ctx context.Context, u model.User) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return model.User{}, ErrUserAlreadyExists
	}
	if _, ok := r.byName[u.Username]; ok {
		return model.User{}, ErrUserAlreadyExists
	}
	c := u.Clone()
	r.byID[c.ID] = c
	r.byEmail[c.Email] = c.ID
	r.byName[c.Username] = c.ID
	return c.Clone(), nil
}

func (r *MemoryUserRepo) Update(ctx context.Context, u model.User) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[u.ID]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	// Email or username may change. Check both identifiers before touching
	// any index so a failed update leaves the indexes untouched.
	if u.Email != old.Email {
		if _, taken := r.byEmail[u.Email]; taken {
			return model.User{}, ErrUserAlreadyExists
		}
	}
	if u.Username != old.Username {
		if _, taken := r.byName[u.Username]; taken {
			return model.User{}, ErrUserAlreadyExists
		}
	}
	if u.Email != old.Email {
		delete(r.byEmail, old.Email)
		r.byEmail[u.Email] = u.ID
	}
	if u.Username != old.Username {
		delete(r.byName, old.Username)
		r.byName[u.Username] = u.ID
	}
	c := u.Clone()
	r.byID[c.ID] = c
	return c.Clone(), nil
}

func (r *MemoryUserRepo) FindByID(ctx context.Context, id string) (model.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return model.User{}, false, nil
	}
	return u.Clone(), true, nil
}

func (r *MemoryUserRepo) FindByEmail(ctx context.Context, email string) (model.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, false, nil
	}
	return r.byID[id].Clone(), true, nil
}

func (r *MemoryUserRepo) FindByUsername(ctx context.Context, username string) (model.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[strings.TrimSpace(username)]
	if !ok {
		return model.User{}, false, nil
	}
	return r.byID[id].Clone(), true, nil
}

// filter returns all users matching pred, ordered by creation time so that
// listings are stable across calls.
func (r *MemoryUserRepo) filter(pred func(model.User) bool) []model.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.User
	for _, u := range r.byID {
		if pred(u) {
			out = append(out, u.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryUserRepo) FindByRole(ctx context.Context, role string) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return u.HasRole(role) }), nil
}

func (r *MemoryUserRepo) FindByRoles(ctx context.Context, roles []string) ([]model.User, error) {
	return r.filter(func(u model.User) bool {
		for _, role := range roles {
			if u.HasRole(role) {
				return true
			}
		}
		return false
	}), nil
}

func (r *MemoryUserRepo) FindAllEnabled(ctx context.Context) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return u.Enabled }), nil
}

func (r *MemoryUserRepo) FindAllDisabled(ctx context.Context) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return !u.Enabled }), nil
}

func (r *MemoryUserRepo) FindAllLocked(ctx context.Context) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return u.Locked }), nil
}

func (r *MemoryUserRepo) FindUsersCreatedAfter(ctx context.Context, t time.Time) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return u.CreatedAt.After(t) }), nil
}

func (r *MemoryUserRepo) FindByAttribute(ctx context.Context, key, value string) ([]model.User, error) {
	return r.filter(func(u model.User) bool { return u.Attributes[key] == value }), nil
}

func (r *MemoryUserRepo) FindByAttributes(ctx context.Context, key string, values []string) ([]model.User, error) {
	return r.filter(func(u model.User) bool {
		v, ok := u.Attributes[key]
		if !ok {
			return false
		}
		for _, want := range values {
			if v == want {
				return true
			}
		}
		return false
	}), nil
}

func (r *MemoryUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

func (r *MemoryUserRepo) CountByRole(ctx context.Context, role string) (int64, error) {
	return int64(len(r.filter(func(u model.User) bool { return u.HasRole(role) }))), nil
}

func (r *MemoryUserRepo) CountEnabled(ctx context.Context) (int64, error) {
	return int64(len(r.filter(func(u model.User) bool { return u.Enabled }))), nil
}

func (r *MemoryUserRepo) CountDisabled(ctx context.Context) (int64, error) {
	return int64(len(r.filter(func(u model.User) bool { return !u.Enabled }))), nil
}

func (r *MemoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

func (r *MemoryUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[strings.TrimSpace(username)]
	return ok, nil
}

func (r *MemoryUserRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok, nil
}

func (r *MemoryUserRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	delete(r.byName, u.Username)
	return nil
}

func (r *MemoryUserRepo) Delete(ctx context.Context, u model.User) error {
	return r.DeleteByID(ctx, u.ID)
}

func (r *MemoryUserRepo) FindAll(ctx context.Context, page, size int) ([]model.User, error) {
	all := r.filter(func(model.User) bool { return true })
	return paginate(all, page, size), nil
}

func (r *MemoryUserRepo) FindByUsernameContaining(ctx context.Context, pattern string, page, size int) ([]model.User, error) {
	p := strings.ToLower(pattern)
	matched := r.filter(func(u model.User) bool {
		return strings.Contains(strings.ToLower(u.Username), p)
	})
	return paginate(matched, page, size), nil
}

// paginate slices a zero-based page of the given size.
func paginate(users []model.User, page, size int) []model.User {
	if page < 0 || size <= 0 {
		return nil
	}
	start := page * size
	if start >= len(users) {
		return nil
	}
	end := start + size
	if end > len(users) {
		end = len(users)
	}
	return users[start:end]
}
