package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/events"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	"github.com/spec-kit/reimbursement-service/internal/repository/memory"
	"github.com/spec-kit/reimbursement-service/internal/storage"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

const testBaseURL = "http://files.test"

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	users    *memory.UserStore
	tickets  *memory.TicketStore
	blobs    *storage.LocalStore
	tokens   *auth.TokenManager
	events   *recorder
	ticket   *TicketService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir(), testBaseURL, "blob-secret")
	require.NoError(t, err)

	f := &fixture{
		users:   memory.NewUserStore(),
		tickets: memory.NewTicketStore(),
		blobs:   blobs,
		tokens:  auth.NewTokenManager("jwt-secret", 5),
		events:  &recorder{},
	}
	logger := zaptest.NewLogger(t)
	clock := &stepClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	dispatcher := events.NewInMemoryDispatcher(logger)
	for _, et := range []events.EventType{events.EventTicketSubmitted, events.EventTicketProcessed, events.EventReceiptAttached} {
		dispatcher.Subscribe(et, f.events.handle)
	}

	f.ticket = NewTicketService(TicketDependencies{
		TicketRepo:     f.tickets,
		UserRepo:       f.users,
		Blobs:          blobs,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Clock:          clock.Now,
		URLTTL:         time.Minute,
		UploadMaxBytes: 1024,
	})
	f.accounts = NewAccountService(AccountDependencies{
		UserRepo:       f.users,
		Blobs:          blobs,
		Tokens:         f.tokens,
		Hasher:         auth.NewBcryptHasher(bcrypt.MinCost),
		Logger:         logger,
		Clock:          clock.Now,
		URLTTL:         time.Minute,
		UploadMaxBytes: 1024,
	})
	return f
}

func (f *fixture) seedUser(t *testing.T, id string, role domain.Role) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &domain.User{
		ID:        id,
		Username:  "user-" + id,
		Role:      role,
		CreatedAt: time.Now(),
	}))
}

func (f *fixture) submit(t *testing.T, ownerID string, ticketType domain.TicketType) *domain.Ticket {
	t.Helper()
	ticket, err := f.ticket.Submit(context.Background(), TicketDraft{
		Amount:      120,
		Description: "team dinner with client",
		Type:        ticketType,
	}, ownerID)
	require.NoError(t, err)
	return ticket
}

func pngFile(name string) storage.File {
	body := "\x89PNG fake image"
	return storage.File{Name: name, ContentType: "image/png", Size: int64(len(body)), Content: strings.NewReader(body)}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

type mockTicketRepo struct {
	mock.Mock
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	return m.Called(ctx, ticket).Error(0)
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	ticket, _ := args.Get(0).(*domain.Ticket)
	return ticket, args.Error(1)
}

func (m *mockTicketRepo) List(ctx context.Context, q repository.TicketQuery) ([]domain.Ticket, error) {
	args := m.Called(ctx, q)
	tickets, _ := args.Get(0).([]domain.Ticket)
	return tickets, args.Error(1)
}

func (m *mockTicketRepo) TransitionStatus(ctx context.Context, id string, from, to domain.TicketStatus, actorID string, at time.Time) (*domain.Ticket, error) {
	args := m.Called(ctx, id, from, to, actorID, at)
	ticket, _ := args.Get(0).(*domain.Ticket)
	return ticket, args.Error(1)
}

func (m *mockTicketRepo) AppendReceipt(ctx context.Context, id, ref string) (*domain.Ticket, error) {
	args := m.Called(ctx, id, ref)
	ticket, _ := args.Get(0).(*domain.Ticket)
	return ticket, args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, id string, patch repository.UserPatch) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

// failingBlobs uploads nowhere and refuses to sign.
type failingBlobs struct{}

func (failingBlobs) Upload(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingBlobs) SignURL(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("signer unavailable")
}
