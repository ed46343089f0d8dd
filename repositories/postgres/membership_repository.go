package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/models"
	"github.com/hashim1213/soluly-business-suite-sub004/repositories"
)

// MembershipRepository implements the repositories.MembershipRepository interface
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new membership. A NULL allowed_project_ids column
// means unrestricted access; an empty array grants nothing, so the
// distinction must survive the round trip.
func (r *MembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	query := `
		INSERT INTO memberships (id, org_id, user_id, role, allowed_project_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		membership.ID,
		membership.OrgID,
		membership.UserID,
		membership.Role,
		allowedProjectsValue(membership.AllowedProjectIDs),
		membership.CreatedAt,
		membership.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}

	r.logger.Debug("membership created",
		zap.String("id", membership.ID.String()),
		zap.String("org_id", membership.OrgID.String()),
		zap.String("user_id", membership.UserID.String()),
		zap.String("role", string(membership.Role)))
	return nil
}

// GetByID retrieves a membership by ID
func (r *MembershipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT id, org_id, user_id, role, allowed_project_ids, created_at, updated_at
		FROM memberships
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	membership, err := scanMembership(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("membership not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return membership, nil
}

// GetByOrgAndUser retrieves the membership binding a user to an organization
func (r *MembershipRepository) GetByOrgAndUser(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT id, org_id, user_id, role, allowed_project_ids, created_at, updated_at
		FROM memberships
		WHERE org_id = $1 AND user_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	membership, err := scanMembership(executor.QueryRowContext(ctx, query, orgID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("membership not found for user %s in org %s: %w", userID, orgID, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return membership, nil
}

// GetByUserID retrieves all memberships for a user
func (r *MembershipRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT id, org_id, user_id, role, allowed_project_ids, created_at, updated_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	return r.queryMemberships(ctx, query, userID)
}

// GetByOrgID retrieves all memberships for an organization with pagination
func (r *MembershipRepository) GetByOrgID(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*models.Membership, error) {
	query := `
		SELECT id, org_id, user_id, role, allowed_project_ids, created_at, updated_at
		FROM memberships
		WHERE org_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`

	return r.queryMemberships(ctx, query, orgID, limit, offset)
}

// CountByOrgAndRole counts the organization's members holding a role
func (r *MembershipRepository) CountByOrgAndRole(ctx context.Context, orgID uuid.UUID, role models.MemberRole) (int, error) {
	query := `SELECT COUNT(*) FROM memberships WHERE org_id = $1 AND role = $2`

	executor := GetExecutor(ctx, r.db)
	var count int
	if err := executor.QueryRowContext(ctx, query, orgID, role).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// Update updates a membership
func (r *MembershipRepository) Update(ctx context.Context, membership *models.Membership) error {
	query := `
		UPDATE memberships
		SET role = $2,
		    allowed_project_ids = $3,
		    updated_at = $4
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		membership.ID,
		membership.Role,
		allowedProjectsValue(membership.AllowedProjectIDs),
		membership.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("membership not found: %s: %w", membership.ID, sql.ErrNoRows)
	}

	r.logger.Debug("membership updated", zap.String("id", membership.ID.String()))
	return nil
}

// Delete deletes a membership
func (r *MembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM memberships WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("membership not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("membership deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *MembershipRepository) WithTx(tx repositories.Transaction) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     r.db,
		logger: r.logger,
	}
}

// queryMemberships is a helper method to query multiple memberships
func (r *MembershipRepository) queryMemberships(ctx context.Context, query string, args ...interface{}) ([]*models.Membership, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		membership, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, membership)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership rows: %w", err)
	}

	return memberships, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(row rowScanner) (*models.Membership, error) {
	membership := &models.Membership{}
	err := row.Scan(
		&membership.ID,
		&membership.OrgID,
		&membership.UserID,
		&membership.Role,
		pq.Array(&membership.AllowedProjectIDs),
		&membership.CreatedAt,
		&membership.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// allowedProjectsValue maps a nil allow-list to SQL NULL so that
// unrestricted and empty stay distinct in the column.
func allowedProjectsValue(ids []uuid.UUID) interface{} {
	if ids == nil {
		return nil
	}
	return pq.Array(ids)
}
