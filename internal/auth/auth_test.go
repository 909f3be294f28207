package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	"github.com/spec-kit/reimbursement-service/internal/repository/memory"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	identity := domain.Identity{UserID: "u-1", Username: "alice", Role: domain.RoleManager}

	token, err := tm.Issue(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), token.ExpiresAt, 2*time.Second)

	got, err := tm.Parse(token.Token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, err := tm.Issue(domain.Identity{UserID: "u-1", Username: "alice", Role: domain.RoleEmployee})
	require.NoError(t, err)

	t.Run("other secret", func(t *testing.T) {
		_, err := NewTokenManager("other", 1).Parse(token.Token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager("secret", 1)
		later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err := later.Parse(token.Token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Parse("abc.def.ghi")
		assert.Error(t, err)
	})
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hashed, err := h.Hash("pass1")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1", hashed)

	assert.NoError(t, h.Compare(hashed, "pass1"))
	assert.ErrorIs(t, h.Compare(hashed, "pass2"), ErrPasswordMismatch)
}

func newProtectedApp(t *testing.T) (*fiber.App, *TokenManager, *memory.UserStore) {
	t.Helper()
	users := memory.NewUserStore()
	tm := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tm, users)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(apperrors.ToDomainError(err).HTTPStatus).SendString(err.Error())
	}})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		require.True(t, ok)
		return c.SendString(string(identity.Role))
	})
	app.Get("/managers", mw.Handle, RequireRole(domain.RoleManager), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm, users
}

func doRequest(t *testing.T, app *fiber.App, path, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	app, tm, users := newProtectedApp(t)
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: "u-1", Username: "alice", Role: domain.RoleEmployee}))

	token, err := tm.Issue(domain.Identity{UserID: "u-1", Username: "alice", Role: domain.RoleEmployee})
	require.NoError(t, err)
	bearer := "Bearer " + token.Token

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, "/me", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, "/me", "Basic abc").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, "/me", "Bearer nope").StatusCode)
	assert.Equal(t, http.StatusOK, doRequest(t, app, "/me", bearer).StatusCode)
	assert.Equal(t, http.StatusForbidden, doRequest(t, app, "/managers", bearer).StatusCode)

	// a promotion applies to the existing token
	manager := domain.RoleManager
	_, err = users.Update(context.Background(), "u-1", repository.UserPatch{Role: &manager})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, doRequest(t, app, "/managers", bearer).StatusCode)

	ghost, err := tm.Issue(domain.Identity{UserID: "u-404", Username: "ghost", Role: domain.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, "/me", "Bearer "+ghost.Token).StatusCode)
}
