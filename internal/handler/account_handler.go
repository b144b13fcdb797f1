package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lucidcrew/account-service/internal/middleware"
	"github.com/lucidcrew/account-service/internal/model"
	"github.com/lucidcrew/account-service/internal/service"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	Create(ctx context.Context, in service.CreateAccountInput) (*model.Account, error)
	Update(ctx context.Context, id string, patch model.AccountPatch) (*model.Account, error)
	Remove(ctx context.Context, id string) error
	UpdateRefreshToken(ctx context.Context, id string, token *string) error
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	ValidatePassword(candidate, storedHash string) (bool, error)
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(ctx context.Context, id string) (*model.AccountView, error)
	ListAccounts(ctx context.Context, page, size int64, filter model.AccountFilter) (*model.AccountPageView, error)
	RefreshView(ctx context.Context, account *model.Account)
	InvalidateView(ctx context.Context, id string)
}

// AccountHandler is the HTTP adapter. It parses and validates request
// shapes, enforces caller-level authorization, and maps domain errors to
// status codes. Credential fields never leave this layer: responses are
// always AccountView.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

type RegisterAccountRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty"`
	Role      string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

type UpdateAccountRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	Status    *string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

type UpdateRefreshTokenRequest struct {
	// RefreshToken null (or absent) clears the stored reference.
	RefreshToken *string `json:"refreshToken"`
}

type ValidateCredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.Create(c.Request.Context(), service.CreateAccountInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      model.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrDuplicateEmail):
			middleware.RespondWithError(c, http.StatusConflict, "Email already registered")
		case errors.Is(err, model.ErrInvalidValue):
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid role")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create account")
		}
		return
	}

	h.queries.RefreshView(c.Request.Context(), account)
	c.JSON(http.StatusCreated, model.NewAccountView(account))
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if !h.canAccess(c, accountID) {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only access your own account")
		return
	}

	view, err := h.queries.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to fetch account")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "0"), 10, 64)
	if err != nil || page < 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid page parameter")
		return
	}
	size, err := strconv.ParseInt(c.DefaultQuery("size", "10"), 10, 64)
	if err != nil || size <= 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid size parameter")
		return
	}

	filter := model.AccountFilter{
		Email:  c.Query("email"),
		Role:   model.Role(c.Query("role")),
		Status: model.Status(c.Query("status")),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid role filter")
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid status filter")
		return
	}

	result, err := h.queries.ListAccounts(c.Request.Context(), page, size, filter)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if !h.canAccess(c, accountID) {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only update your own account")
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	// Role and status changes are administrative.
	if (req.Role != nil || req.Status != nil) && middleware.GetRole(c) != string(model.RoleAdmin) {
		middleware.RespondWithError(c, http.StatusForbidden, "Only administrators can change role or status")
		return
	}

	patch := model.AccountPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	if req.Role != nil {
		role := model.Role(*req.Role)
		patch.Role = &role
	}
	if req.Status != nil {
		status := model.Status(*req.Status)
		patch.Status = &status
	}

	account, err := h.commands.Update(c.Request.Context(), accountID, patch)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
		case errors.Is(err, model.ErrInvalidValue):
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid role or status")
		default:
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update account")
		}
		return
	}

	h.queries.RefreshView(c.Request.Context(), account)
	c.JSON(http.StatusOK, model.NewAccountView(account))
}

func (h *AccountHandler) DeactivateAccount(c *gin.Context) {
	accountID := c.Param("accountId")
	if !h.canAccess(c, accountID) {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only deactivate your own account")
		return
	}

	if err := h.commands.Remove(c.Request.Context(), accountID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to deactivate account")
		return
	}

	h.queries.InvalidateView(c.Request.Context(), accountID)
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) UpdateRefreshToken(c *gin.Context) {
	accountID := c.Param("accountId")
	requestingID, _ := middleware.GetAccountID(c)
	if accountID != requestingID {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only rotate your own refresh token")
		return
	}

	var req UpdateRefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.commands.UpdateRefreshToken(c.Request.Context(), accountID, req.RefreshToken); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update refresh token")
		return
	}

	c.Status(http.StatusNoContent)
}

// ValidateCredentials lets the auth subsystem check an email/password pair.
// An unknown email and a wrong password are indistinguishable in the
// response; neither is an error.
func (h *AccountHandler) ValidateCredentials(c *gin.Context) {
	var req ValidateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to validate credentials")
		return
	}
	if account == nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	valid, err := h.commands.ValidatePassword(req.Password, account.PasswordHash)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to validate credentials")
		return
	}
	if !valid {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "accountId": account.ID})
}

// canAccess allows the account owner and administrators through.
func (h *AccountHandler) canAccess(c *gin.Context, accountID string) bool {
	requestingID, _ := middleware.GetAccountID(c)
	return requestingID == accountID || middleware.GetRole(c) == string(model.RoleAdmin)
}
