package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/felipe-nonato/task-manager/internal/api/http/handlers"
	"github.com/felipe-nonato/task-manager/internal/config"
	"github.com/felipe-nonato/task-manager/internal/domain"
	"github.com/felipe-nonato/task-manager/internal/external"
	"github.com/felipe-nonato/task-manager/internal/observability"
	"github.com/felipe-nonato/task-manager/internal/persistence"
	"github.com/felipe-nonato/task-manager/internal/repository"
	"github.com/felipe-nonato/task-manager/internal/service"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
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

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

type memTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets []*domain.Ticket
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = r.nextID
	ticket.CreatedAt = time.Now()
	stored := *ticket
	r.tickets = append(r.tickets, &stored)
	return nil
}

func (r *memTicketRepo) RecordForwardOutcome(_ context.Context, ticketID int64, status int, response string, eventID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *memTicketRepo) GetByEventID(_ context.Context, eventID string) (*domain.Ticket, error) {
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

func (r *memTicketRepo) UpdateATRByEventID(_ context.Context, eventID string, payload string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type stubForwarder struct {
	result *external.Result
	err    error
}

func (f *stubForwarder) Forward(_ context.Context, _ external.Payload) (*external.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testForwarderConfig() config.ForwarderConfig {
	return config.ForwarderConfig{
		URL:         "https://tickets.example.test",
		APIKey:      "test-key",
		Origin:      "Campina",
		Env:         "DEV",
		Tower:       "Felipe Nonato",
		ProblemType: "Problem",
	}
}

func newTestApp(userRepo repository.UserRepository, ticketRepo repository.TicketRepository, fwd service.Forwarder, fcfg config.ForwarderConfig) *fiber.App {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(config.AuthConfig{
		BcryptCost:        bcrypt.MinCost,
		MinPasswordLength: 6,
	}, service.AuthDependencies{UserRepo: userRepo})
	ticketService := service.NewTicketService(fcfg, service.TicketDependencies{
		TicketRepo: ticketRepo,
		Forwarder:  fwd,
		Metrics:    metrics,
	})
	atrService := service.NewATRService(ticketRepo, nil, logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler(&persistence.Postgres{}, &persistence.Redis{}),
		Users:   handlers.NewUsersHandler(authService),
		Tickets: handlers.NewTicketsHandler(ticketService, atrService),
	})
	return app
}
