package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/felipe-nonato/task-manager/internal/domain"
	"github.com/felipe-nonato/task-manager/internal/external"
	"github.com/felipe-nonato/task-manager/internal/repository"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	nextID    int64
	users     map[string]*domain.User
	createErr error
	lookups   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.users[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.Email] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	user, ok := r.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type fakeTicketRepo struct {
	mu           sync.Mutex
	nextID       int64
	tickets      []*domain.Ticket
	createErr    error
	atrRowsForce *int64
	outcomeCalls int
	atrCalls     int
	lastFilter   repository.TicketFilter
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	ticket.ID = r.nextID
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	stored := *ticket
	r.tickets = append(r.tickets, &stored)
	return nil
}

func (r *fakeTicketRepo) RecordForwardOutcome(_ context.Context, ticketID int64, status int, response string, eventID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomeCalls++
	for _, ticket := range r.tickets {
		if ticket.ID == ticketID {
			ticket.ExternalStatus = &status
			ticket.ExternalResponse = &response
			ticket.EventID = eventID
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeTicketRepo) GetByEventID(_ context.Context, eventID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.EventID != nil && *ticket.EventID == eventID {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) UpdateATRByEventID(_ context.Context, eventID string, payload string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.atrCalls++
	if r.atrRowsForce != nil {
		return *r.atrRowsForce, nil
	}
	now := time.Now()
	var rows int64
	for _, ticket := range r.tickets {
		if ticket.EventID != nil && *ticket.EventID == eventID {
			stored := payload
			ticket.ATRResponse = &stored
			ticket.ATRReceivedAt = &now
			rows++
		}
	}
	return rows, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter

	matched := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if filter.UserID != nil {
			if ticket.UserID == nil || *ticket.UserID != *filter.UserID {
				continue
			}
		}
		matched = append(matched, *ticket)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []domain.Ticket{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *fakeTicketRepo) byID(id int64) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ID == id {
			copied := *ticket
			return &copied
		}
	}
	return nil
}

type fakeForwarder struct {
	mu          sync.Mutex
	result      *external.Result
	err         error
	calls       int
	lastPayload external.Payload
}

func (f *fakeForwarder) Forward(_ context.Context, payload external.Payload) (*external.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPayload = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGate struct {
	allow    bool
	failures []string
	resets   []string
}

func (g *fakeGate) Allow(_ context.Context, _ string) bool { return g.allow }

func (g *fakeGate) RecordFailure(_ context.Context, email string) {
	g.failures = append(g.failures, email)
}

func (g *fakeGate) Reset(_ context.Context, email string) {
	g.resets = append(g.resets, email)
}
