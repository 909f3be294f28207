package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/reimbursement-service/internal/auth"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	"github.com/spec-kit/reimbursement-service/internal/storage"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	account, err := f.accounts.Register(ctx, Credentials{Username: "alice", Password: "pass1"})
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, domain.RoleEmployee, account.Role)

	stored, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1", stored.PasswordHash)

	_, err = f.accounts.Register(ctx, Credentials{Username: "alice", Password: "other2"})
	requireCode(t, err, apperrors.CodeConflict)

	invalid := map[string]Credentials{
		"short username":         {Username: "al", Password: "pass1"},
		"long username":          {Username: "abcdefghijklmnopq", Password: "pass1"},
		"short password":         {Username: "bob", Password: "p1"},
		"password without digit": {Username: "bob", Password: "password"},
		"password with symbols":  {Username: "bob", Password: "pass-1"},
		"missing password":       {Username: "bob"},
	}
	for name, creds := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := f.accounts.Register(ctx, creds)
			requireCode(t, err, apperrors.CodeValidationFailed)
		})
	}
}

func TestAccountService_RegisterUniqueViolationRace(t *testing.T) {
	users := &mockUserRepo{}
	users.On("GetByUsername", mock.Anything, "alice").Return(nil, repository.ErrNotFound)
	users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(repository.ErrDuplicate)

	svc := NewAccountService(AccountDependencies{UserRepo: users, Hasher: auth.NewBcryptHasher(bcrypt.MinCost)})
	_, err := svc.Register(context.Background(), Credentials{Username: "alice", Password: "pass1"})
	requireCode(t, err, apperrors.CodeConflict)
	users.AssertExpectations(t)
}

func TestAccountService_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	registered, err := f.accounts.Register(ctx, Credentials{Username: "alice", Password: "pass1"})
	require.NoError(t, err)

	_, err = f.accounts.Login(ctx, Credentials{Username: "nobody", Password: "pass1"})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.accounts.Login(ctx, Credentials{Username: "alice", Password: "wrong1"})
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = f.accounts.Login(ctx, Credentials{Username: "alice"})
	requireCode(t, err, apperrors.CodeValidationFailed)

	session, err := f.accounts.Login(ctx, Credentials{Username: "alice", Password: "pass1"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, session.Account.ID)

	identity, err := f.tokens.Parse(session.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{UserID: registered.ID, Username: "alice", Role: domain.RoleEmployee}, identity)
}

func TestAccountService_ChangeRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "U1", domain.RoleEmployee)

	_, err := f.accounts.ChangeRole(ctx, "U1", "Admin")
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.accounts.ChangeRole(ctx, "ghost", domain.RoleManager)
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.accounts.ChangeRole(ctx, "U1", domain.RoleEmployee)
	requireCode(t, err, apperrors.CodeNoOp)

	promoted, err := f.accounts.ChangeRole(ctx, "U1", domain.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, promoted.Role)
}

func TestAccountService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "U1", domain.RoleEmployee)

	other := "someone-else"
	_, err := f.accounts.UpdateProfile(ctx, "U1", ProfilePatch{Username: &other})
	requireCode(t, err, apperrors.CodeInvalidArgument)

	same := "user-U1"
	name := "Alice Liddell"
	updated, err := f.accounts.UpdateProfile(ctx, "U1", ProfilePatch{Username: &same, Name: &name})
	require.NoError(t, err)
	require.NotNil(t, updated.Name)
	assert.Equal(t, name, *updated.Name)
	assert.Nil(t, updated.Address)

	address := "1 Rabbit Hole"
	updated, err = f.accounts.UpdateProfile(ctx, "U1", ProfilePatch{Address: &address})
	require.NoError(t, err)
	assert.Equal(t, name, *updated.Name)
	assert.Equal(t, address, *updated.Address)

	long := strings.Repeat("a", 101)
	_, err = f.accounts.UpdateProfile(ctx, "U1", ProfilePatch{Name: &long})
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.accounts.UpdateProfile(ctx, "ghost", ProfilePatch{Name: &name})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestAccountService_UploadAvatar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, "U1", domain.RoleEmployee)

	_, err := f.accounts.UploadAvatar(ctx, "ghost", pngFile("me.png"))
	requireCode(t, err, apperrors.CodeNotFound)

	pdf := storage.File{Name: "me.pdf", ContentType: "application/pdf", Size: 8, Content: strings.NewReader("%PDF-1.7")}
	_, err = f.accounts.UploadAvatar(ctx, "U1", pdf)
	requireCode(t, err, apperrors.CodeValidationFailed)

	account, err := f.accounts.UploadAvatar(ctx, "U1", pngFile("me.png"))
	require.NoError(t, err)
	require.NotNil(t, account.AvatarURL)
	assert.True(t, strings.HasPrefix(*account.AvatarURL, testBaseURL+"/files?token="))

	stored, err := f.users.GetByID(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, stored.Profile.AvatarRef)
	assert.True(t, strings.HasPrefix(*stored.Profile.AvatarRef, "avatars/U1/"))

	profile, err := f.accounts.GetProfile(ctx, "U1")
	require.NoError(t, err)
	assert.NotNil(t, profile.AvatarURL)

	svc := NewAccountService(AccountDependencies{UserRepo: f.users, Blobs: failingBlobs{}})
	_, err = svc.UploadAvatar(ctx, "U1", pngFile("me.png"))
	requireCode(t, err, apperrors.CodeUploadFailure)
}
