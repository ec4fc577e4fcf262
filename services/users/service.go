package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/reactiverates/users/models"
	"github.com/reactiverates/users/repositories"
	"github.com/reactiverates/users/services"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CreateUserInput carries the fields accepted when creating a user
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Role        models.UserRole
}

// UpdateUserInput is a partial update; nil fields are left unchanged
type UpdateUserInput struct {
	Username    *string
	Email       *string
	Password    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Role        *models.UserRole
	IsActive    *bool
}

// Option configures a UserService
type Option func(*UserService)

// WithBcryptCost overrides the bcrypt work factor
func WithBcryptCost(cost int) Option {
	return func(s *UserService) {
		s.bcryptCost = cost
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *UserService) {
		if now != nil {
			s.now = now
		}
	}
}

// UserService implements user management on top of the user repository
type UserService struct {
	users      repositories.UserRepository
	txMgr      repositories.TransactionManager
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new UserService instance
func NewUserService(users repositories.UserRepository, txMgr repositories.TransactionManager, logger *zap.Logger, opts ...Option) *UserService {
	s := &UserService{
		users:      users,
		txMgr:      txMgr,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll returns every user ordered by creation time
func (s *UserService) GetAll(ctx context.Context, opts repositories.ListOptions) ([]*models.User, error) {
	users, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, s.repoError("list users", err)
	}
	return users, nil
}

// GetByID returns the user with the given id
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, s.repoError("get user by id", err)
	}
	return user, nil
}

// GetByUsername returns the user with the given username
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, s.repoError("get user by username", err)
	}
	return user, nil
}

// GetByEmail returns the user with the given email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.repoError("get user by email", err)
	}
	return user, nil
}

// GetByRole returns every user holding role
func (s *UserService) GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	if !role.IsValid() {
		return nil, services.ErrInvalidRole.WithDetail("role", string(role))
	}
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, s.repoError("list users by role", err)
	}
	return users, nil
}

// GetActive returns every active user
func (s *UserService) GetActive(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, s.repoError("list active users", err)
	}
	return users, nil
}

// Search matches term against username, email and names. A blank term is
// a validation error.
func (s *UserService) Search(ctx context.Context, term string) ([]*models.User, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, services.ErrInvalidInput.WithDetail("q", "search term is required")
	}
	users, err := s.users.Search(ctx, term)
	if err != nil {
		return nil, s.repoError("search users", err)
	}
	return users, nil
}

// Create registers a new active user. Username and email must be unused;
// an empty role defaults to USER.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if in.Role != "" && !in.Role.IsValid() {
		return nil, services.ErrInvalidRole.WithDetail("role", string(in.Role))
	}
	if in.Password == "" {
		return nil, services.ErrInvalidPassword
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.User, error) {
		if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
			return nil, err
		}
		if err := s.ensureEmailFree(ctx, in.Email); err != nil {
			return nil, err
		}

		hash, err := s.hashPassword(in.Password)
		if err != nil {
			return nil, err
		}

		user := models.NewUser(in.Username, in.Email, hash, in.Role)
		user.FirstName = in.FirstName
		user.LastName = in.LastName
		user.PhoneNumber = in.PhoneNumber
		now := s.now()
		user.CreatedAt = now
		user.UpdatedAt = now

		if err := s.users.Create(ctx, user); err != nil {
			return nil, s.repoError("create user", err)
		}

		s.logger.Info("user created",
			zap.String("id", user.ID.String()),
			zap.String("username", user.Username),
			zap.String("role", string(user.Role)))
		return user, nil
	})
}

// Update applies the non-nil fields of in to the user with the given id.
// Changing username or email rechecks uniqueness.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	if in.Role != nil && !in.Role.IsValid() {
		return nil, services.ErrInvalidRole.WithDetail("role", string(*in.Role))
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.User, error) {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, s.repoError("get user by id", err)
		}

		if in.Username != nil && *in.Username != user.Username {
			if err := s.ensureUsernameFree(ctx, *in.Username); err != nil {
				return nil, err
			}
			user.Username = *in.Username
		}
		if in.Email != nil && *in.Email != user.Email {
			if err := s.ensureEmailFree(ctx, *in.Email); err != nil {
				return nil, err
			}
			user.Email = *in.Email
		}
		if in.Password != nil {
			hash, err := s.hashPassword(*in.Password)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = hash
		}
		if in.FirstName != nil {
			user.FirstName = in.FirstName
		}
		if in.LastName != nil {
			user.LastName = in.LastName
		}
		if in.PhoneNumber != nil {
			user.PhoneNumber = in.PhoneNumber
		}
		if in.Role != nil {
			user.Role = *in.Role
		}
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}
		user.UpdatedAt = s.now()

		if err := s.users.Update(ctx, user); err != nil {
			return nil, s.repoError("update user", err)
		}

		s.logger.Info("user updated", zap.String("id", id.String()))
		return user, nil
	})
}

// Delete removes the user with the given id
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return s.repoError("delete user", err)
	}
	s.logger.Info("user deleted", zap.String("id", id.String()))
	return nil
}

// Activate marks the user active
func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate marks the user inactive
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *UserService) setActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.User, error) {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, s.repoError("get user by id", err)
		}

		if active {
			user.Activate()
		} else {
			user.Deactivate()
		}
		user.UpdatedAt = s.now()

		if err := s.users.Update(ctx, user); err != nil {
			return nil, s.repoError("update user", err)
		}

		s.logger.Info("user activation changed",
			zap.String("id", id.String()),
			zap.Bool("active", active))
		return user, nil
	})
}

// VerifyPassword reports whether password matches the user's stored hash
func (s *UserService) VerifyPassword(user *models.User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return s.repoError("check username", err)
	}
	if taken {
		return services.ErrDuplicateUsername.WithDetail("username", username)
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return s.repoError("check email", err)
	}
	if taken {
		return services.ErrDuplicateEmail.WithDetail("email", email)
	}
	return nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", services.ErrInvalidPassword.Wrap(err)
		}
		return "", services.WrapInternal("failed to hash password", err)
	}
	return string(hash), nil
}

// repoError translates repository failures into domain errors
func (s *UserService) repoError(op string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrUserNotFound.Wrap(err)
	}
	s.logger.Error("repository operation failed", zap.String("op", op), zap.Error(err))
	return services.ErrDatabaseError.Wrap(err)
}
