package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/reimbursement-service/internal/api/dto"
	"github.com/spec-kit/reimbursement-service/internal/service"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

// AccountsHandler exposes registration, login and profile endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accountService *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accountService}
}

// Register handles POST /auth/register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.accounts.Register(c.UserContext(), service.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// Login handles POST /auth/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.accounts.Login(c.UserContext(), service.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		User: dto.NewAccountResponse(&session.Account),
		Auth: dto.AuthResponse{Token: session.Token.Token, ExpiresAt: session.Token.ExpiresAt},
	}})
}

// Me handles GET /users/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	account, err := h.accounts.GetProfile(c.UserContext(), identity.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// UpdateMe handles PATCH /users/me.
func (h *AccountsHandler) UpdateMe(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	account, err := h.accounts.UpdateProfile(c.UserContext(), identity.UserID, service.ProfilePatch{
		Username: req.Username,
		Name:     req.Name,
		Address:  req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// UploadAvatar handles POST /users/me/avatar.
func (h *AccountsHandler) UploadAvatar(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	file, closeFile, err := formFile(c)
	if err != nil {
		return err
	}
	defer closeFile()

	account, err := h.accounts.UploadAvatar(c.UserContext(), identity.UserID, file)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// ChangeRole handles PATCH /users/:id/role.
func (h *AccountsHandler) ChangeRole(c *fiber.Ctx) error {
	var req dto.ChangeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := apperrors.ValidateStruct(req); err != nil {
		return err
	}
	account, err := h.accounts.ChangeRole(c.UserContext(), c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}
