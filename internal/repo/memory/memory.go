// Package memory holds map-backed repositories for service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

func New() repo.Repos {
	return repo.Repos{
		Users:    NewUsers(),
		Products: NewProducts(),
		Sessions: NewSessions(),
	}
}

type Users struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.User
}

func NewUsers() *Users {
	return &Users{rows: map[uint]models.User{}}
}

func (s *Users) FindByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (s *Users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *Users) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.rows))
	for _, u := range s.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Users) taken(username string, except uint) bool {
	for id, u := range s.rows {
		if id != except && u.Username == username {
			return true
		}
	}
	return false
}

func (s *Users) Insert(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(u.Username, 0) {
		return repo.ErrDuplicate
	}
	s.nextID++
	u.ID = s.nextID
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.rows[u.ID] = *u
	return nil
}

func (s *Users) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[u.ID]; !ok {
		return repo.ErrNotFound
	}
	if s.taken(u.Username, u.ID) {
		return repo.ErrDuplicate
	}
	u.UpdatedAt = time.Now().UTC()
	s.rows[u.ID] = *u
	return nil
}

func (s *Users) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type Products struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.Product
}

func NewProducts() *Products {
	return &Products{rows: map[uint]models.Product{}}
}

func (s *Products) FindByID(_ context.Context, id uint) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (s *Products) sorted(keep func(models.Product) bool) []models.Product {
	out := make([]models.Product, 0, len(s.rows))
	for _, p := range s.rows {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func window(items []models.Product, offset, limit int) []models.Product {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) || limit <= 0 {
		return []models.Product{}
	}
	if limit > len(items)-offset {
		limit = len(items) - offset
	}
	return items[offset : offset+limit]
}

func (s *Products) List(_ context.Context, f repo.ProductFilter, offset, limit int) (int64, []models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted(func(p models.Product) bool {
		return f.Category == "" || p.Category == f.Category
	})
	return int64(len(all)), window(all, offset, limit), nil
}

func (s *Products) ListAll(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(nil), nil
}

func (s *Products) Top(_ context.Context, limit int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted(nil)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Sales > all[j].Sales })
	return window(all, 0, limit), nil
}

func (s *Products) Categories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, p := range s.rows {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Products) Search(_ context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	all := s.sorted(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q)
	})
	return int64(len(all)), window(all, offset, limit), nil
}

func (s *Products) Insert(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.rows[p.ID] = *p
	return nil
}

func (s *Products) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[p.ID]; !ok {
		return repo.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.rows[p.ID] = *p
	return nil
}

func (s *Products) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type Sessions struct {
	mu     sync.Mutex
	nextID uint
	rows   map[string]models.Session
}

func NewSessions() *Sessions {
	return &Sessions{rows: map[string]models.Session{}}
}

func (s *Sessions) Insert(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[sess.JTI]; ok {
		return repo.ErrDuplicate
	}
	s.nextID++
	sess.ID = s.nextID
	sess.CreatedAt = time.Now().UTC()
	s.rows[sess.JTI] = *sess
	return nil
}

func (s *Sessions) FindByJTI(_ context.Context, jti string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.rows[jti]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &sess, nil
}

func (s *Sessions) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.rows[jti]; ok {
		sess.Revoked = true
		s.rows[jti] = sess
	}
	return nil
}

func (s *Sessions) RevokeUser(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, sess := range s.rows {
		if sess.UserID == userID {
			sess.Revoked = true
			s.rows[jti] = sess
		}
	}
	return nil
}

func (s *Sessions) DeleteEnded(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for jti, sess := range s.rows {
		if sess.Revoked || !sess.ExpiresAt.After(now) {
			delete(s.rows, jti)
			n++
		}
	}
	return n, nil
}
