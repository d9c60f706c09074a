package repository

import (
	"context"
	"sync"
	"time"

	"github.com/sociopedia/sociopedia/server/internal/post"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory repository used by unit tests and by the
// server when no MONGO_URL is configured.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*post.Post
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*post.Post)}
}

// clone hands out copies so callers never alias stored likes maps.
func clone(p *post.Post) *post.Post {
	c := *p
	c.Likes = make(map[string]bool, len(p.Likes))
	for k, v := range p.Likes {
		c.Likes[k] = v
	}
	c.Comments = append([]string{}, p.Comments...)
	return &c
}

func (m *MemoryRepo) Create(ctx context.Context, p *post.Post) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	p.Normalize()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.store[p.ID] = clone(p)
	m.order = append(m.order, p.ID)
	return p.ID, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.store[id]; ok {
		return clone(p), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(ctx context.Context) ([]*post.Post, error) {
	return m.filter(func(*post.Post) bool { return true }), nil
}

func (m *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]*post.Post, error) {
	return m.filter(func(p *post.Post) bool { return p.UserID == userID }), nil
}

func (m *MemoryRepo) filter(keep func(*post.Post) bool) []*post.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*post.Post, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		if p := m.store[m.order[i]]; keep(p) {
			out = append(out, clone(p))
		}
	}
	return out
}

func (m *MemoryRepo) ToggleLike(ctx context.Context, id, userID string) (*post.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Likes[userID] {
		delete(p.Likes, userID)
	} else {
		p.Likes[userID] = true
	}
	p.UpdatedAt = time.Now().UTC()
	return clone(p), nil
}
