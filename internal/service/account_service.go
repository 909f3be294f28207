package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	"github.com/spec-kit/reimbursement-service/internal/storage"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(identity domain.Identity) (domain.AccessToken, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashed, plain string) error
}

// AccountService manages registration, login and profile data.
type AccountService struct {
	users          repository.UserRepository
	blobs          storage.BlobStore
	tokens         TokenIssuer
	hasher         PasswordHasher
	logger         *zap.Logger
	now            func() time.Time
	urlTTL         time.Duration
	uploadMaxBytes int64
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	UserRepo       repository.UserRepository
	Blobs          storage.BlobStore
	Tokens         TokenIssuer
	Hasher         PasswordHasher
	Logger         *zap.Logger
	Clock          func() time.Time
	URLTTL         time.Duration
	UploadMaxBytes int64
}

// Credentials carries a username and password for registration.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=16"`
	Password string `json:"password" validate:"required,min=3,alphanum,containsany=0123456789"`
}

type loginCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfilePatch lists the profile fields a user may change. Username is
// accepted only so an attempted change can be rejected explicitly.
type ProfilePatch struct {
	Username *string `json:"username,omitempty"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=200"`
}

// Account is the public view of a user.
type Account struct {
	ID        string
	Username  string
	Role      domain.Role
	Name      *string
	Address   *string
	AvatarURL *string
	CreatedAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	Account Account
	Token   domain.AccessToken
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	s := &AccountService{
		users:          deps.UserRepo,
		blobs:          deps.Blobs,
		tokens:         deps.Tokens,
		hasher:         deps.Hasher,
		logger:         deps.Logger,
		now:            deps.Clock,
		urlTTL:         deps.URLTTL,
		uploadMaxBytes: deps.UploadMaxBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.urlTTL <= 0 {
		s.urlTTL = defaultURLTTL
	}
	if s.uploadMaxBytes <= 0 {
		s.uploadMaxBytes = defaultUploadMaxBytes
	}
	return s
}

// Register creates an Employee account.
func (s *AccountService) Register(ctx context.Context, creds Credentials) (*Account, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := apperrors.ValidateStruct(creds); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, creds.Username); err == nil {
		return nil, s.usernameTaken(creds.Username)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.storageFailure("lookup username failed", err, zap.String("username", creds.Username))
	}

	hash, err := s.hasher.Hash(creds.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     creds.Username,
		PasswordHash: hash,
		Role:         domain.RoleEmployee,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.usernameTaken(creds.Username)
		}
		return nil, s.storageFailure("persist user failed", err, zap.String("username", creds.Username))
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.account(ctx, user)
}

// Login verifies credentials and issues an access token.
func (s *AccountService) Login(ctx context.Context, creds Credentials) (*Session, error) {
	input := loginCredentials{Username: strings.TrimSpace(creds.Username), Password: creds.Password}
	if err := apperrors.ValidateStruct(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("username", map[string]any{"username": input.Username})
		}
		return nil, s.storageFailure("lookup username failed", err, zap.String("username", input.Username))
	}
	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		s.logger.Warn("login rejected", zap.String("user_id", user.ID))
		return nil, apperrors.NewUnauthorized("incorrect password")
	}

	token, err := s.tokens.Issue(domain.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	account, err := s.account(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{Account: *account, Token: token}, nil
}

// GetProfile returns the public view of userID.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*Account, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.account(ctx, user)
}

// ChangeRole sets targetID's role.
func (s *AccountService) ChangeRole(ctx context.Context, targetID string, role domain.Role) (*Account, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("role must be one of: Employee Manager",
			map[string]any{"role": string(role)})
	}
	user, err := s.loadUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return nil, apperrors.NewNoOp("user already has this role",
			map[string]any{"user_id": targetID, "role": string(role)})
	}

	updated, err := s.users.Update(ctx, targetID, repository.UserPatch{Role: &role})
	if err != nil {
		return nil, s.updateFailure(targetID, err)
	}
	s.logger.Info("user role changed",
		zap.String("user_id", targetID),
		zap.String("from", string(user.Role)),
		zap.String("to", string(role)))
	return s.account(ctx, updated)
}

// UpdateProfile merges patch into userID's profile.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*Account, error) {
	if err := apperrors.ValidateStruct(patch); err != nil {
		return nil, err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Username != nil && *patch.Username != user.Username {
		return nil, apperrors.NewInvalidArgument("username cannot be changed",
			map[string]any{"username": "username is immutable"})
	}

	repoPatch := repository.UserPatch{Name: patch.Name, Address: patch.Address}
	if repoPatch.Empty() {
		return s.account(ctx, user)
	}
	updated, err := s.users.Update(ctx, userID, repoPatch)
	if err != nil {
		return nil, s.updateFailure(userID, err)
	}
	s.logger.Info("profile updated", zap.String("user_id", userID))
	return s.account(ctx, updated)
}

// UploadAvatar stores an image and records it as userID's avatar.
func (s *AccountService) UploadAvatar(ctx context.Context, userID string, file storage.File) (*Account, error) {
	if err := validateUpload(file, s.uploadMaxBytes, false); err != nil {
		return nil, err
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	key := storage.AvatarKey(userID, file.Name, s.now())
	ref, err := s.blobs.Upload(ctx, key, file.Content, file.Size, file.ContentType)
	if err != nil {
		s.logger.Error("avatar upload failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.NewUploadFailure(err)
	}

	updated, err := s.users.Update(ctx, userID, repository.UserPatch{AvatarRef: &ref})
	if err != nil {
		return nil, s.updateFailure(userID, err)
	}
	s.logger.Info("avatar uploaded", zap.String("user_id", userID))
	return s.account(ctx, updated)
}

func (s *AccountService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return nil, s.storageFailure("load user failed", err, zap.String("user_id", userID))
	}
	return user, nil
}

func (s *AccountService) account(ctx context.Context, user *domain.User) (*Account, error) {
	account := &Account{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Name:      user.Profile.Name,
		Address:   user.Profile.Address,
		CreatedAt: user.CreatedAt,
	}
	if user.Profile.AvatarRef != nil {
		url, err := s.blobs.SignURL(ctx, *user.Profile.AvatarRef, s.urlTTL)
		if err != nil {
			s.logger.Error("resolve avatar url failed", zap.String("user_id", user.ID), zap.Error(err))
			return nil, apperrors.NewUploadFailure(err)
		}
		account.AvatarURL = &url
	}
	return account, nil
}

func (s *AccountService) usernameTaken(username string) error {
	s.logger.Warn("username already taken", zap.String("username", username))
	return apperrors.NewConflict("username is already taken", map[string]any{"username": username})
}

func (s *AccountService) updateFailure(userID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	return s.storageFailure("update user failed", err, zap.String("user_id", userID))
}

func (s *AccountService) storageFailure(msg string, err error, fields ...zap.Field) error {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return apperrors.NewStorageFailure(err)
}
