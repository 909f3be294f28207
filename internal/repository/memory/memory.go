// Package memory provides mutex-guarded, in-process implementations of the
// repository interfaces. They back the service when no database is
// configured and serve as fakes in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/repository"
)

// UserStore keeps users keyed by id with a username index.
type UserStore struct {
	mu         sync.RWMutex
	byID       map[string]domain.User
	byUsername map[string]string
}

// NewUserStore creates an empty store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:       make(map[string]domain.User),
		byUsername: make(map[string]string),
	}
}

var _ repository.UserRepository = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUsername[user.Username]; exists {
		return repository.ErrDuplicate
	}
	if _, exists := s.byID[user.ID]; exists {
		return repository.ErrDuplicate
	}
	user.UpdatedAt = user.CreatedAt
	s.byID[user.ID] = copyUser(*user)
	s.byUsername[user.Username] = user.ID
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyUser(user)
	return &out, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) Update(_ context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.Name != nil {
		user.Profile.Name = stringPtr(*patch.Name)
	}
	if patch.Address != nil {
		user.Profile.Address = stringPtr(*patch.Address)
	}
	if patch.AvatarRef != nil {
		user.Profile.AvatarRef = stringPtr(*patch.AvatarRef)
	}
	if !patch.Empty() {
		user.UpdatedAt = time.Now().UTC()
	}
	s.byID[id] = user
	out := copyUser(user)
	return &out, nil
}

// TicketStore keeps tickets keyed by id.
type TicketStore struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewTicketStore creates an empty store.
func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]domain.Ticket)}
}

var _ repository.TicketRepository = (*TicketStore)(nil)

func (s *TicketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[ticket.ID]; exists {
		return repository.ErrDuplicate
	}
	ticket.UpdatedAt = ticket.CreatedAt
	s.tickets[ticket.ID] = copyTicket(*ticket)
	return nil
}

func (s *TicketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyTicket(ticket)
	return &out, nil
}

func (s *TicketStore) List(_ context.Context, q repository.TicketQuery) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Ticket
	for _, ticket := range s.tickets {
		if q.Status != nil && ticket.Status != *q.Status {
			continue
		}
		if q.OwnerID != nil && ticket.OwnerID != *q.OwnerID {
			continue
		}
		if q.Type != nil && ticket.Type != *q.Type {
			continue
		}
		result = append(result, copyTicket(ticket))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if q.NewestFirst {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *TicketStore) TransitionStatus(_ context.Context, id string, from, to domain.TicketStatus, actorID string, at time.Time) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok || ticket.Status != from {
		return nil, repository.ErrNotFound
	}
	ticket.Status = to
	ticket.ProcessedBy = stringPtr(actorID)
	processedAt := at
	ticket.ProcessedAt = &processedAt
	ticket.UpdatedAt = at
	s.tickets[id] = ticket
	out := copyTicket(ticket)
	return &out, nil
}

func (s *TicketStore) AppendReceipt(_ context.Context, id, ref string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket.ReceiptRefs = append(append([]string{}, ticket.ReceiptRefs...), ref)
	ticket.UpdatedAt = time.Now().UTC()
	s.tickets[id] = ticket
	out := copyTicket(ticket)
	return &out, nil
}

func copyUser(u domain.User) domain.User {
	u.Profile.Name = clonePtr(u.Profile.Name)
	u.Profile.Address = clonePtr(u.Profile.Address)
	u.Profile.AvatarRef = clonePtr(u.Profile.AvatarRef)
	return u
}

func copyTicket(t domain.Ticket) domain.Ticket {
	t.ReceiptRefs = append([]string{}, t.ReceiptRefs...)
	t.ProcessedBy = clonePtr(t.ProcessedBy)
	if t.ProcessedAt != nil {
		at := *t.ProcessedAt
		t.ProcessedAt = &at
	}
	return t
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	return stringPtr(*s)
}

func stringPtr(s string) *string {
	return &s
}
