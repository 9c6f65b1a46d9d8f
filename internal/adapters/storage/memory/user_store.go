package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lindalindashu/novel-agent/internal/domain"
)

type UserStore struct {
	mu     sync.Mutex
	nextID domain.UserID
	users  map[string]*domain.User
	now    func() time.Time
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*domain.User),
		now:   time.Now,
	}
}

func (s *UserStore) GetOrCreateUser(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[username]; ok {
		c := *u
		return &c, nil
	}

	s.nextID++
	u := &domain.User{ID: s.nextID, Username: username, CreatedAt: s.now()}
	s.users[username] = u

	c := *u
	return &c, nil
}
