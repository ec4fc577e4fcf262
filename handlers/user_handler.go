package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reactiverates/users/middleware"
	"github.com/reactiverates/users/models"
	"github.com/reactiverates/users/repositories"
	"github.com/reactiverates/users/services/users"
	"github.com/reactiverates/users/utils"
	"go.uber.org/zap"
)

// MaxPageSize caps the limit query parameter of list endpoints and is the
// page size used when limit is omitted
const MaxPageSize = 500

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username    string          `json:"username" validate:"required,min=3,max=50"`
	Email       string          `json:"email" validate:"required,email"`
	Password    string          `json:"password" validate:"required,min=6,max=72"`
	FirstName   *string         `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName    *string         `json:"lastName,omitempty" validate:"omitempty,max=100"`
	PhoneNumber *string         `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	Role        models.UserRole `json:"role,omitempty" validate:"omitempty,user_role"`
}

// UpdateUserRequest represents a partial user update
type UpdateUserRequest struct {
	Username    *string          `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Email       *string          `json:"email,omitempty" validate:"omitempty,email"`
	Password    *string          `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
	FirstName   *string          `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName    *string          `json:"lastName,omitempty" validate:"omitempty,max=100"`
	PhoneNumber *string          `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	Role        *models.UserRole `json:"role,omitempty" validate:"omitempty,user_role"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uuid.UUID       `json:"id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	FirstName   *string         `json:"firstName,omitempty"`
	LastName    *string         `json:"lastName,omitempty"`
	FullName    string          `json:"fullName"`
	PhoneNumber *string         `json:"phoneNumber,omitempty"`
	Role        models.UserRole `json:"role"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

// UserService defines the user operations the handler needs
type UserService interface {
	GetAll(ctx context.Context, opts repositories.ListOptions) ([]*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
	GetActive(ctx context.Context) ([]*models.User, error)
	Search(ctx context.Context, term string) ([]*models.User, error)
	Create(ctx context.Context, in users.CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, in users.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	list, err := h.service.GetAll(r.Context(), opts)
	h.writeList(w, r, list, err)
}

// HandleGet handles GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetByID(r.Context(), id)
	h.writeUser(w, r, http.StatusOK, user, err)
}

// HandleGetByUsername handles GET /api/users/username/{username}
func (h *UserHandler) HandleGetByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByUsername(r.Context(), chi.URLParam(r, "username"))
	h.writeUser(w, r, http.StatusOK, user, err)
}

// HandleGetByEmail handles GET /api/users/email/{email}
func (h *UserHandler) HandleGetByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := utils.ValidateEmail(email); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	user, err := h.service.GetByEmail(r.Context(), email)
	h.writeUser(w, r, http.StatusOK, user, err)
}

// HandleGetByRole handles GET /api/users/role/{role}
func (h *UserHandler) HandleGetByRole(w http.ResponseWriter, r *http.Request) {
	role, err := utils.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	list, err := h.service.GetByRole(r.Context(), role)
	h.writeList(w, r, list, err)
}

// HandleListActive handles GET /api/users/active
func (h *UserHandler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.GetActive(r.Context())
	h.writeList(w, r, list, err)
}

// HandleSearch handles GET /api/users/search?q=
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	h.writeList(w, r, list, err)
}

// HandleCreate handles POST /api/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.Create(r.Context(), users.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
	})
	h.writeUser(w, r, http.StatusCreated, user, err)
}

// HandleUpdate handles PUT /api/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.Update(r.Context(), id, users.UpdateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
		IsActive:    req.IsActive,
	})
	h.writeUser(w, r, http.StatusOK, user, err)
}

// HandleDelete handles DELETE /api/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logFailure(r, "delete user", err)
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleActivate handles PATCH /api/users/{id}/activate
func (h *UserHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Activate(r.Context(), id)
	h.writeUser(w, r, http.StatusOK, user, err)
}

// HandleDeactivate handles PATCH /api/users/{id}/deactivate
func (h *UserHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Deactivate(r.Context(), id)
	h.writeUser(w, r, http.StatusOK, user, err)
}

func (h *UserHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) writeUser(w http.ResponseWriter, r *http.Request, status int, user *models.User, err error) {
	if err != nil {
		h.logFailure(r, "user request failed", err)
		HandleServiceError(w, err, h.logger)
		return
	}
	if err := utils.WriteJSON(w, status, utils.SuccessResponse{Data: userToResponse(user)}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *UserHandler) writeList(w http.ResponseWriter, r *http.Request, list []*models.User, err error) {
	if err != nil {
		h.logFailure(r, "user list request failed", err)
		HandleServiceError(w, err, h.logger)
		return
	}
	responses := make([]UserResponse, len(list))
	for i, u := range list {
		responses[i] = userToResponse(u)
	}
	if err := utils.WriteOK(w, responses); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func (h *UserHandler) logFailure(r *http.Request, msg string, err error) {
	h.logger.Debug(msg,
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("username", middleware.GetAuthenticationFromContext(r.Context()).Username()),
		zap.Error(err))
}

// parseListOptions reads limit and offset query parameters. A missing limit
// becomes MaxPageSize.
func parseListOptions(r *http.Request) (repositories.ListOptions, error) {
	opts := repositories.ListOptions{Limit: MaxPageSize}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPageSize {
			return opts, &utils.ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{"limit": "limit must be between 1 and " + strconv.Itoa(MaxPageSize)},
			}
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, &utils.ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{"offset": "offset must be a non-negative integer"},
			}
		}
		opts.Offset = n
	}
	return opts, nil
}

// userToResponse converts a user model to its response shape
func userToResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName(),
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
