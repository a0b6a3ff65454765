package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"ainastudio/pkg/domain"
)

// MemoryStore keeps records in-process. Used for local runs and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User // key: user ID
	emails        map[string]string      // email -> user ID
	businesses    map[string]domain.Business
	templates     map[string]domain.Template
	subscriptions map[string]domain.Subscription
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		emails:        make(map[string]string),
		businesses:    make(map[string]domain.Business),
		templates:     make(map[string]domain.Template),
		subscriptions: make(map[string]domain.Subscription),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.users[u.ID]; ok && prev.Email != u.Email {
		delete(m.emails, strings.ToLower(prev.Email))
	}
	m.users[u.ID] = u
	m.emails[strings.ToLower(u.Email)] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.emails[strings.ToLower(email)]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateBusiness(b domain.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.businesses {
		if existing.OwnerID == b.OwnerID {
			return ErrBusinessExists
		}
	}
	m.businesses[b.ID] = cloneBusiness(b)
	return nil
}

func (m *MemoryStore) GetBusinessByOwner(ownerID string) (domain.Business, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.businesses {
		if b.OwnerID == ownerID {
			return cloneBusiness(b), true, nil
		}
	}
	return domain.Business{}, false, nil
}

// UpdateBusiness mirrors GormStore: name, type and owner are not rewritten.
func (m *MemoryStore) UpdateBusiness(b domain.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.businesses[b.ID]
	if !ok {
		return ErrNotFound
	}
	next := cloneBusiness(b)
	next.OwnerID = cur.OwnerID
	next.Name = cur.Name
	next.Type = cur.Type
	next.CreatedAt = cur.CreatedAt
	m.businesses[b.ID] = next
	return nil
}

func (m *MemoryStore) DeleteBusiness(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.businesses[id]; !ok {
		return ErrNotFound
	}
	delete(m.businesses, id)
	return nil
}

func (m *MemoryStore) CreateTemplate(t domain.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t
	return nil
}

func (m *MemoryStore) GetTemplate(id string) (domain.Template, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	return t, ok, nil
}

func (m *MemoryStore) ListTemplatesByOwner(ownerID string, filter TemplateFilter) ([]domain.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Template, 0)
	for _, t := range m.templates {
		if t.OwnerID != ownerID {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.FavoriteOnly && !t.Favorite {
			continue
		}
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryStore) UpdateTemplate(t domain.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.templates[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.OwnerID = cur.OwnerID
	t.UseCount = cur.UseCount
	t.CreatedAt = cur.CreatedAt
	m.templates[t.ID] = t
	return nil
}

func (m *MemoryStore) IncrementTemplateUse(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return ErrNotFound
	}
	t.UseCount++
	m.templates[id] = t
	return nil
}

func (m *MemoryStore) DeleteTemplate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *MemoryStore) SaveSubscription(s domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.subscriptions[s.ID]; ok && !cur.CreatedAt.IsZero() {
		s.CreatedAt = cur.CreatedAt
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.subscriptions[s.ID] = s
	return nil
}

func (m *MemoryStore) GetSubscriptionByUser(userID string) (domain.Subscription, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var (
		latest domain.Subscription
		found  bool
	)
	for _, s := range m.subscriptions {
		if s.UserID != userID {
			continue
		}
		if !found || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
			found = true
		}
	}
	return latest, found, nil
}

func (m *MemoryStore) GetSubscriptionByProviderRef(ref string) (domain.Subscription, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subscriptions {
		if ref != "" && s.ProviderRef == ref {
			return s, true, nil
		}
	}
	return domain.Subscription{}, false, nil
}

func cloneBusiness(b domain.Business) domain.Business {
	b.InspirationPhotos = append([]string{}, b.InspirationPhotos...)
	b.Keywords = append([]string{}, b.Keywords...)
	b.Platforms = append([]domain.Platform{}, b.Platforms...)
	return b
}
