// Package memorydb is an in-process record store that keeps the same atomic
// contract as the mongo-backed databases. It backs STORE_DRIVER=memory and tests.
package memorydb

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/change-order-api/models"
)

// Store holds users and change orders behind one mutex; every exported method
// is a single critical section, which is what makes the set and log updates atomic.
type Store struct {
	mu     sync.Mutex
	users  map[string]models.User
	orders map[string]*models.ChangeOrder
}

// New returns an empty store
func New() *Store {
	return &Store{
		users:  make(map[string]models.User),
		orders: make(map[string]*models.ChangeOrder),
	}
}

// Users exposes the store as a databases.UserDatabase
func (s *Store) Users() *UserDatabase {
	return &UserDatabase{s: s}
}

// ChangeOrders exposes the store as a databases.ChangeOrderDatabase
func (s *Store) ChangeOrders() *ChangeOrderDatabase {
	return &ChangeOrderDatabase{s: s}
}

// UserDatabase is the user half of the store
type UserDatabase struct {
	s *Store
}

// FindByID looks a user up by id
func (u *UserDatabase) FindByID(_ context.Context, id string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if user.ID == id {
			found := user
			return &found, nil
		}
	}
	return nil, models.ErrNotFound
}

// FindByUsername looks a user up by its natural key
func (u *UserDatabase) FindByUsername(_ context.Context, username string) (*models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &user, nil
}

// InsertOne stores a user; usernames are unique
func (u *UserDatabase) InsertOne(_ context.Context, details models.UserDetails) (string, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, exists := u.s.users[details.Username]; exists {
		return "", models.ErrDuplicate
	}
	id := primitive.NewObjectID().Hex()
	u.s.users[details.Username] = models.User{ID: id, Details: details}
	return id, nil
}

// EnsureIndexes is a no-op
func (u *UserDatabase) EnsureIndexes(context.Context) error { return nil }

// ChangeOrderDatabase is the change order half of the store
type ChangeOrderDatabase struct {
	s *Store
}

// FindByID returns a copy of the order
func (c *ChangeOrderDatabase) FindByID(_ context.Context, id string) (*models.ChangeOrder, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	order, ok := c.s.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := copyOrder(order)
	return &cp, nil
}

// FindByStatuses returns copies of every order in one of the statuses
func (c *ChangeOrderDatabase) FindByStatuses(_ context.Context, statuses ...models.Status) ([]models.ChangeOrder, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var out []models.ChangeOrder
	for _, order := range c.s.orders {
		for _, st := range statuses {
			if order.Status == st {
				out = append(out, copyOrder(order))
				break
			}
		}
	}
	return out, nil
}

// InsertOne stores the order under a fresh id
func (c *ChangeOrderDatabase) InsertOne(_ context.Context, order models.ChangeOrder) (string, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	order.ID = primitive.NewObjectID().Hex()
	cp := copyOrder(&order)
	c.s.orders[order.ID] = &cp
	return order.ID, nil
}

// AddSubscriber adds username to the order's subscriber set
func (c *ChangeOrderDatabase) AddSubscriber(_ context.Context, id, username string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	order, ok := c.s.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	if !order.HasSubscriber(username) {
		order.Subscribers = append(order.Subscribers, username)
	}
	return nil
}

// RemoveSubscriber removes username from the order's subscriber set
func (c *ChangeOrderDatabase) RemoveSubscriber(_ context.Context, id, username string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	order, ok := c.s.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	kept := order.Subscribers[:0]
	for _, s := range order.Subscribers {
		if s != username {
			kept = append(kept, s)
		}
	}
	order.Subscribers = kept
	return nil
}

// CompareAndSetStatus moves the order from `from` to `to` if it still holds `from`
func (c *ChangeOrderDatabase) CompareAndSetStatus(_ context.Context, id string, from, to models.Status) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	order, ok := c.s.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

// AppendChat appends msg to the order's chat log in arrival order
func (c *ChangeOrderDatabase) AppendChat(_ context.Context, id string, msg models.ChatMessage) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	order, ok := c.s.orders[id]
	if !ok {
		return models.ErrNotFound
	}
	order.ChatLog = append(order.ChatLog, msg)
	order.UpdatedAt = time.Now().UTC()
	return nil
}

// EnsureIndexes is a no-op
func (c *ChangeOrderDatabase) EnsureIndexes(context.Context) error { return nil }

func copyOrder(o *models.ChangeOrder) models.ChangeOrder {
	cp := *o
	cp.ChatLog = append([]models.ChatMessage{}, o.ChatLog...)
	cp.Subscribers = append([]string{}, o.Subscribers...)
	return cp
}
