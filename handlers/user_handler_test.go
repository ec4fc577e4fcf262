package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/reactiverates/users/models"
	"github.com/reactiverates/users/repositories"
	"github.com/reactiverates/users/services"
	"github.com/reactiverates/users/services/users"
	"github.com/reactiverates/users/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) user(args mock.Arguments) (*models.User, error) {
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) list(args mock.Arguments) ([]*models.User, error) {
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) GetAll(ctx context.Context, opts repositories.ListOptions) ([]*models.User, error) {
	return m.list(m.Called(ctx, opts))
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.user(m.Called(ctx, username))
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *MockUserService) GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	return m.list(m.Called(ctx, role))
}

func (m *MockUserService) GetActive(ctx context.Context) ([]*models.User, error) {
	return m.list(m.Called(ctx))
}

func (m *MockUserService) Search(ctx context.Context, term string) ([]*models.User, error) {
	return m.list(m.Called(ctx, term))
}

func (m *MockUserService) Create(ctx context.Context, in users.CreateUserInput) (*models.User, error) {
	return m.user(m.Called(ctx, in))
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, in users.UpdateUserInput) (*models.User, error) {
	return m.user(m.Called(ctx, id, in))
}

func (m *MockUserService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserService) Activate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserService) Deactivate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

// newUserRouter mounts the handler on a chi router so URL params resolve
func newUserRouter(h *UserHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/users", h.HandleList)
	r.Post("/api/users", h.HandleCreate)
	r.Get("/api/users/active", h.HandleListActive)
	r.Get("/api/users/search", h.HandleSearch)
	r.Get("/api/users/username/{username}", h.HandleGetByUsername)
	r.Get("/api/users/email/{email}", h.HandleGetByEmail)
	r.Get("/api/users/role/{role}", h.HandleGetByRole)
	r.Get("/api/users/{id}", h.HandleGet)
	r.Put("/api/users/{id}", h.HandleUpdate)
	r.Delete("/api/users/{id}", h.HandleDelete)
	r.Patch("/api/users/{id}/activate", h.HandleActivate)
	r.Patch("/api/users/{id}/deactivate", h.HandleDeactivate)
	return r
}

func sampleUser() *models.User {
	first := "Alice"
	u := models.NewUser("alice", "alice@example.com", "hash", models.RoleUser)
	u.FirstName = &first
	u.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u.UpdatedAt = u.CreatedAt
	return u
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUserHandler_Get(t *testing.T) {
	user := sampleUser()

	t.Run("returns user without password hash", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetByID", mock.Anything, user.ID).Return(user, nil)
		router := newUserRouter(NewUserHandler(svc, zap.NewNop()))

		rec := do(t, router, http.MethodGet, "/api/users/"+user.ID.String(), "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "hash")
		var body struct {
			Data UserResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, user.ID, body.Data.ID)
		assert.Equal(t, "alice", body.Data.Username)
		assert.Equal(t, "Alice", body.Data.FullName)
		assert.Equal(t, models.RoleUser, body.Data.Role)
		assert.True(t, body.Data.IsActive)
		assert.Equal(t, "2026-01-02T03:04:05Z", body.Data.CreatedAt)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := new(MockUserService)
		router := newUserRouter(NewUserHandler(svc, zap.NewNop()))

		rec := do(t, router, http.MethodGet, "/api/users/42", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockUserService)
		id := uuid.New()
		svc.On("GetByID", mock.Anything, id).Return(nil, services.ErrUserNotFound)
		router := newUserRouter(NewUserHandler(svc, zap.NewNop()))

		rec := do(t, router, http.MethodGet, "/api/users/"+id.String(), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUserHandler_Lookups(t *testing.T) {
	user := sampleUser()

	t.Run("by username", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetByUsername", mock.Anything, "alice").Return(user, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/username/alice", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("by email", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/email/alice@example.com", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("by malformed email", func(t *testing.T) {
		svc := new(MockUserService)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/email/nope", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("by role is case insensitive", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetByRole", mock.Anything, models.RoleModerator).Return([]*models.User{}, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/role/moderator", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
	})

	t.Run("by unknown role", func(t *testing.T) {
		svc := new(MockUserService)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/role/ROOT", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("active", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetActive", mock.Anything).Return([]*models.User{user}, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/active", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data []UserResponse `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Len(t, body.Data, 1)
	})

	t.Run("search", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Search", mock.Anything, "ali").Return([]*models.User{user}, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/search?q=ali", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("search without term", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Search", mock.Anything, "").Return(nil, services.ErrInvalidInput.WithDetail("q", "search term is required"))

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users/search", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "search term is required")
	})
}

func TestUserHandler_List(t *testing.T) {
	t.Run("passes paging", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetAll", mock.Anything, repositories.ListOptions{Limit: 5, Offset: 10}).Return([]*models.User{sampleUser()}, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users?limit=5&offset=10", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("offset without limit uses the max page size", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetAll", mock.Anything, repositories.ListOptions{Limit: MaxPageSize, Offset: 10}).Return([]*models.User{}, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users?offset=10", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejects bad paging", func(t *testing.T) {
		for _, q := range []string{"limit=0", "limit=-1", "limit=abc", "limit=100000", "offset=-5"} {
			svc := new(MockUserService)
			rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("service failure", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("GetAll", mock.Anything, repositories.ListOptions{Limit: MaxPageSize}).Return(nil, services.ErrDatabaseError)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodGet, "/api/users", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestUserHandler_Create(t *testing.T) {
	t.Run("creates user", func(t *testing.T) {
		svc := new(MockUserService)
		user := sampleUser()
		svc.On("Create", mock.Anything, mock.MatchedBy(func(in users.CreateUserInput) bool {
			return in.Username == "alice" && in.Password == "secret123" && in.Role == models.RoleModerator && *in.FirstName == "Alice"
		})).Return(user, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPost, "/api/users",
			`{"username":"alice","email":"alice@example.com","password":"secret123","firstName":"Alice","role":"MODERATOR"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("validation failure names json fields", func(t *testing.T) {
		svc := new(MockUserService)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPost, "/api/users",
			`{"username":"al","email":"nope","password":"123","role":"ROOT"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body utils.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Contains(t, body.Details, "username")
		assert.Contains(t, body.Details, "email")
		assert.Contains(t, body.Details, "password")
		assert.Contains(t, body.Details, "role")
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrDuplicateUsername.WithDetail("username", "alice"))

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPost, "/api/users",
			`{"username":"alice","email":"alice@example.com","password":"secret123"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "username already exists")
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		svc := new(MockUserService)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPost, "/api/users",
			`{"username":"alice","email":"alice@example.com","password":"secret123","isAdmin":true}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserHandler_Update(t *testing.T) {
	user := sampleUser()

	t.Run("partial update", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Update", mock.Anything, user.ID, mock.MatchedBy(func(in users.UpdateUserInput) bool {
			return in.Username == nil && in.Email != nil && *in.Email == "new@example.com" && in.IsActive != nil && !*in.IsActive
		})).Return(user, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPut, "/api/users/"+user.ID.String(),
			`{"email":"new@example.com","isActive":false}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc := new(MockUserService)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPut, "/api/users/"+user.ID.String(),
			`{"role":"GOD"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Update", mock.Anything, user.ID, mock.Anything).Return(nil, services.ErrDuplicateEmail)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPut, "/api/users/"+user.ID.String(),
			`{"email":"taken@example.com"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestUserHandler_DeleteAndActivation(t *testing.T) {
	user := sampleUser()

	t.Run("delete", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Delete", mock.Anything, user.ID).Return(nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodDelete, "/api/users/"+user.ID.String(), "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("delete missing", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Delete", mock.Anything, user.ID).Return(services.ErrUserNotFound)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodDelete, "/api/users/"+user.ID.String(), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deactivate", func(t *testing.T) {
		svc := new(MockUserService)
		inactive := sampleUser()
		inactive.IsActive = false
		svc.On("Deactivate", mock.Anything, user.ID).Return(inactive, nil)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPatch, "/api/users/"+user.ID.String()+"/deactivate", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"isActive":false`)
	})

	t.Run("activate missing", func(t *testing.T) {
		svc := new(MockUserService)
		svc.On("Activate", mock.Anything, user.ID).Return(nil, services.ErrUserNotFound)

		rec := do(t, newUserRouter(NewUserHandler(svc, zap.NewNop())), http.MethodPatch, "/api/users/"+user.ID.String()+"/activate", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
