package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hashim1213/soluly-business-suite-sub004/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
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

// OrganizationRepository handles organization data operations
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by slug
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// List retrieves all organizations with pagination
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)

	// Update updates an organization (slug is immutable and never written)
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) OrganizationRepository
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// MembershipRepository handles organization membership data operations
type MembershipRepository interface {
	// Create creates a new membership
	Create(ctx context.Context, membership *models.Membership) error

	// GetByID retrieves a membership by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error)

	// GetByOrgAndUser retrieves the membership binding a user to an organization
	GetByOrgAndUser(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error)

	// GetByUserID retrieves all memberships for a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)

	// GetByOrgID retrieves all memberships for an organization with pagination
	GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Membership, error)

	// CountByOrgAndRole counts the organization's members holding a role
	CountByOrgAndRole(ctx context.Context, orgID uuid.UUID, role models.MemberRole) (int, error)

	// Update updates a membership
	Update(ctx context.Context, membership *models.Membership) error

	// Delete deletes a membership
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) MembershipRepository
}

// ProjectRepository handles project data operations
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *models.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)

	// GetByOrgID retrieves all projects for an organization with pagination
	GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Project, error)

	// Update updates a project
	Update(ctx context.Context, project *models.Project) error

	// Delete deletes a project
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) ProjectRepository
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// GetByOrgID retrieves audit logs for an organization with pagination
	GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)

	// GetByAction retrieves audit logs by action type
	GetByAction(ctx context.Context, orgID uuid.UUID, action models.AuditAction, limit, offset int) ([]*models.AuditLog, error)

	// GetByDateRange retrieves audit logs within a date range
	GetByDateRange(ctx context.Context, orgID uuid.UUID, start, end time.Time, limit, offset int) ([]*models.AuditLog, error)

	// GetByRequestID retrieves audit logs by request ID
	GetByRequestID(ctx context.Context, requestID string) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Organizations OrganizationRepository
	Users         UserRepository
	Memberships   MembershipRepository
	Projects      ProjectRepository
	AuditLogs     AuditRepository
}
