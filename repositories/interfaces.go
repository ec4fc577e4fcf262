package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/reactiverates/users/models"
)

// ErrNotFound is wrapped by every repository lookup that matches no row
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction.
	// Commits if fn succeeds, rolls back on error. Repositories called with
	// the ctx passed to fn join the transaction.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ListOptions pages a list query. A zero Limit means no limit; Offset is
// applied either way.
type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users ordered by creation time
	List(ctx context.Context, opts ListOptions) ([]*models.User, error)

	// ListByRole retrieves all users with the given role
	ListByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)

	// ListActive retrieves all active users
	ListActive(ctx context.Context) ([]*models.User, error)

	// Search matches query case-insensitively against username, email,
	// first name and last name
	Search(ctx context.Context, query string) ([]*models.User, error)

	// ExistsByUsername reports whether username is taken
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether email is taken
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users UserRepository
}
