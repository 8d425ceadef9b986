// Package store is the typed PostgreSQL persistence layer for
// organizations, policy templates, org policies, policy versions, and
// policy approvers. It keeps SQL visible at the repository boundary
// (teacher precedent: internal/auth/apikey.PostgresStore) rather than
// hiding it behind an ORM.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/stakflo/policystore/internal/model"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, letting every method
// below run either standalone or inside a caller-managed transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the PostgreSQL-backed implementation of C2's persistence
// contract.
type Store struct {
	db *sql.DB
}

// New creates a new Store, verifying the connection is alive.
func New(conn *sql.DB) (*Store, error) {
	if conn == nil {
		return nil, errors.New("database connection is nil")
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: conn}, nil
}

// DB returns the underlying *sql.DB, for callers (the lifecycle
// controller) that need to open their own transactions.
func (s *Store) DB() *sql.DB { return s.db }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}

// --- Reference lookups (organizations, templates, employees) ---

// GetOrganization loads an Organization by id.
func (s *Store) GetOrganization(ctx context.Context, q Querier, id uuid.UUID) (*model.Organization, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, domain, light_logo, dark_logo, status, created_at, updated_at
		FROM organizations WHERE id = $1`, id)

	var o model.Organization
	var status string
	if err := row.Scan(&o.ID, &o.Name, &o.Domain, &o.LightLogo, &o.DarkLogo, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("query organization: %w", err)
	}
	o.Status = model.OrgStatus(status)
	return &o, nil
}

// GetPolicyTemplate loads a PolicyTemplate by id.
func (s *Store) GetPolicyTemplate(ctx context.Context, q Querier, id uuid.UUID) (*model.PolicyTemplate, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, code, description, template_html, group_name, version, created_at, updated_at
		FROM policy_templates WHERE id = $1`, id)

	var t model.PolicyTemplate
	if err := row.Scan(&t.ID, &t.Title, &t.Code, &t.Description, &t.TemplateHTML, &t.Group, &t.Version, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("query policy template: %w", err)
	}
	return &t, nil
}

// UpsertPolicyTemplate inserts a PolicyTemplate by code, or updates its
// content and version if a row with that code already exists. Used by the
// seed-directory hot-reload watcher.
func (s *Store) UpsertPolicyTemplate(ctx context.Context, q Querier, t model.PolicyTemplate) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO policy_templates (id, title, code, description, template_html, group_name, version)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE
		SET title = $1, description = $3, template_html = $4, group_name = $5, version = $6, updated_at = now()`,
		t.Title, t.Code, t.Description, t.TemplateHTML, t.Group, t.Version)
	if err != nil {
		return fmt.Errorf("upsert policy template: %w", err)
	}
	return nil
}

// EmployeeExists reports whether the given employee id is known.
func (s *Store) EmployeeExists(ctx context.Context, q Querier, id uuid.UUID) (bool, error) {
	row := q.QueryRowContext(ctx, `SELECT 1 FROM employees WHERE id = $1`, id)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query employee: %w", err)
	}
	return true, nil
}

// --- OrgPolicy ---

// GetOrgPolicy loads an OrgPolicy by id.
func (s *Store) GetOrgPolicy(ctx context.Context, q Querier, id uuid.UUID) (*model.OrgPolicy, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, organization_id, title, policy_type, current_template_html,
		       department, category, workforce_assignments, created_at, updated_at
		FROM org_policies WHERE id = $1`, id)
	return scanOrgPolicy(row)
}

func scanOrgPolicy(row *sql.Row) (*model.OrgPolicy, error) {
	var p model.OrgPolicy
	var policyType string
	if err := row.Scan(&p.ID, &p.OrganizationID, &p.Title, &policyType, &p.CurrentTemplateHTML,
		&p.Department, &p.Category, &p.WorkforceAssignments, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrgPolicyNotFound
		}
		return nil, fmt.Errorf("query org policy: %w", err)
	}
	p.PolicyType = model.PolicyType(policyType)
	return &p, nil
}

// OrgPolicyDefaults carries the fields used when a fresh OrgPolicy row
// must be created by GetOrCreateOrgPolicy.
type OrgPolicyDefaults struct {
	PolicyType            model.PolicyType
	CurrentTemplateHTML   string
	Department            string
	Category              string
	WorkforceAssignments  []byte
}

// GetOrCreateOrgPolicy implements spec.md §4.2's atomic get-or-create: it
// must run inside a transaction so the row lock it takes on an existing
// row (or the uniqueness constraint racing on insert) serializes
// concurrent callers for the same (organization_id, title).
func (s *Store) GetOrCreateOrgPolicy(ctx context.Context, tx *sql.Tx, orgID uuid.UUID, title string, defaults OrgPolicyDefaults) (*model.OrgPolicy, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, organization_id, title, policy_type, current_template_html,
		       department, category, workforce_assignments, created_at, updated_at
		FROM org_policies WHERE organization_id = $1 AND title = $2 FOR UPDATE`, orgID, title)

	existing, err := scanOrgPolicy(row)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrOrgPolicyNotFound) {
		return nil, false, err
	}

	wa := defaults.WorkforceAssignments
	if wa == nil {
		wa = []byte(`{"assignments": []}`)
	}

	if _, err := tx.ExecContext(ctx, `SAVEPOINT org_policy_insert`); err != nil {
		return nil, false, fmt.Errorf("savepoint before org policy insert: %w", err)
	}

	row = tx.QueryRowContext(ctx, `
		INSERT INTO org_policies (organization_id, title, policy_type, current_template_html, department, category, workforce_assignments)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, organization_id, title, policy_type, current_template_html, department, category, workforce_assignments, created_at, updated_at`,
		orgID, title, string(defaults.PolicyType), defaults.CurrentTemplateHTML, defaults.Department, defaults.Category, wa)

	created, err := scanOrgPolicy(row)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race to a concurrent creator; roll back the failed
			// insert so the transaction stays usable, then re-select under lock.
			if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT org_policy_insert`); rbErr != nil {
				return nil, false, fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			row = tx.QueryRowContext(ctx, `
				SELECT id, organization_id, title, policy_type, current_template_html,
				       department, category, workforce_assignments, created_at, updated_at
				FROM org_policies WHERE organization_id = $1 AND title = $2 FOR UPDATE`, orgID, title)
			existing, err = scanOrgPolicy(row)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("insert org policy: %w", err)
	}
	return created, true, nil
}

// LockOrgPolicy takes a row lock on an OrgPolicy inside the caller's
// transaction, without fetching its content, used by operations (Publish,
// Archive) that mutate PolicyVersion rows under the policy and need to
// serialize against a concurrent Publish for a sibling version.
func (s *Store) LockOrgPolicy(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	row := tx.QueryRowContext(ctx, `SELECT id FROM org_policies WHERE id = $1 FOR UPDATE`, id)
	var got uuid.UUID
	if err := row.Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrgPolicyNotFound
		}
		return fmt.Errorf("lock org policy: %w", err)
	}
	return nil
}

// UpdateOrgPolicyContent overwrites the mutable content fields of an
// OrgPolicy, used by Initialise (step 3) on an already-existing row.
func (s *Store) UpdateOrgPolicyContent(ctx context.Context, tx *sql.Tx, id uuid.UUID, templateHTML, department, category string, workforceAssignments []byte) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE org_policies
		SET current_template_html = $2, department = $3, category = $4, workforce_assignments = $5, updated_at = now()
		WHERE id = $1`, id, templateHTML, department, category, workforceAssignments)
	if err != nil {
		return fmt.Errorf("update org policy content: %w", err)
	}
	return nil
}

// UpdateOrgPolicyWorkforceAssignments updates only the workforce
// assignments JSON, used by the Update operation (step i).
func (s *Store) UpdateOrgPolicyWorkforceAssignments(ctx context.Context, q Querier, id uuid.UUID, workforceAssignments []byte) error {
	_, err := q.ExecContext(ctx, `
		UPDATE org_policies SET workforce_assignments = $2, updated_at = now() WHERE id = $1`, id, workforceAssignments)
	if err != nil {
		return fmt.Errorf("update workforce assignments: %w", err)
	}
	return nil
}

// SetCurrentTemplateHTML mirrors the just-committed version's HTML onto
// OrgPolicy.current_template_html, keeping the invariant in spec.md §3.
func (s *Store) SetCurrentTemplateHTML(ctx context.Context, q Querier, id uuid.UUID, html string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE org_policies SET current_template_html = $2, updated_at = now() WHERE id = $1`, id, html)
	if err != nil {
		return fmt.Errorf("update current template html: %w", err)
	}
	return nil
}

// --- PolicyVersion ---

func scanVersion(row scanner) (model.PolicyVersion, error) {
	var v model.PolicyVersion
	var status string
	if err := row.Scan(&v.ID, &v.OrgPolicyID, &v.Version, &status, &v.IsCurrent, &v.DiffData,
		&v.CheckpointTemplate, &v.ExpiredAt, &v.PublishedAt, &v.ApprovedBy, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return model.PolicyVersion{}, err
	}
	v.Status = model.VersionStatus(status)
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

const versionColumns = `id, org_policy_id, version, status, is_current, diff_data,
		       checkpoint_template, expired_at, published_at, approved_by, created_at, updated_at`

// ListVersions returns a policy's versions ordered by created_at ascending.
func (s *Store) ListVersions(ctx context.Context, q Querier, orgPolicyID uuid.UUID) ([]model.PolicyVersion, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+versionColumns+`
		FROM policy_versions WHERE org_policy_id = $1 ORDER BY created_at ASC`, orgPolicyID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []model.PolicyVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountVersions returns the number of versions a policy has.
func (s *Store) CountVersions(ctx context.Context, q Querier, orgPolicyID uuid.UUID) (int, error) {
	row := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM policy_versions WHERE org_policy_id = $1`, orgPolicyID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return n, nil
}

// LatestVersion returns the most recently created version, or
// ErrVersionNotFound if the policy has none yet.
func (s *Store) LatestVersion(ctx context.Context, q Querier, orgPolicyID uuid.UUID) (*model.PolicyVersion, error) {
	row := q.QueryRowContext(ctx, `SELECT `+versionColumns+`
		FROM policy_versions WHERE org_policy_id = $1 ORDER BY created_at DESC LIMIT 1`, orgPolicyID)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("query latest version: %w", err)
	}
	return &v, nil
}

// FirstVersion returns the earliest-created version (always a checkpoint).
func (s *Store) FirstVersion(ctx context.Context, q Querier, orgPolicyID uuid.UUID) (*model.PolicyVersion, error) {
	row := q.QueryRowContext(ctx, `SELECT `+versionColumns+`
		FROM policy_versions WHERE org_policy_id = $1 ORDER BY created_at ASC LIMIT 1`, orgPolicyID)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("query first version: %w", err)
	}
	return &v, nil
}

// GetVersionByNumber looks up a specific "MAJOR.MINOR" version string.
func (s *Store) GetVersionByNumber(ctx context.Context, q Querier, orgPolicyID uuid.UUID, version string) (*model.PolicyVersion, error) {
	row := q.QueryRowContext(ctx, `SELECT `+versionColumns+`
		FROM policy_versions WHERE org_policy_id = $1 AND version = $2`, orgPolicyID, version)
	v, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("query version: %w", err)
	}
	return &v, nil
}

// InsertVersion inserts a new PolicyVersion row through q (standalone or
// inside the caller's transaction) and returns its id. checkpointHTML is nil
// for a non-checkpoint version. created_at is the wall-clock time of the
// insert itself, not the transaction's start, so versions inserted one
// after another under the OrgPolicy lock sort by created_at in that order.
func (s *Store) InsertVersion(ctx context.Context, q Querier, orgPolicyID uuid.UUID, version string, diffData []byte, checkpointHTML *string, status model.VersionStatus) (uuid.UUID, error) {
	var id uuid.UUID
	row := q.QueryRowContext(ctx, `
		INSERT INTO policy_versions (org_policy_id, version, status, diff_data, checkpoint_template, created_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp())
		RETURNING id`, orgPolicyID, version, string(status), diffData, checkpointHTML)
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrDuplicateVersion
		}
		return uuid.Nil, fmt.Errorf("insert policy version: %w", err)
	}
	return id, nil
}

// UpdateVersionStatus sets a version's status (and updated_at).
func (s *Store) UpdateVersionStatus(ctx context.Context, q Querier, versionID uuid.UUID, status model.VersionStatus) error {
	_, err := q.ExecContext(ctx, `
		UPDATE policy_versions SET status = $2, updated_at = now() WHERE id = $1`, versionID, string(status))
	if err != nil {
		return fmt.Errorf("update version status: %w", err)
	}
	return nil
}

// PublishVersion atomically clears is_current on the policy's previously
// current version and sets it on versionID, recording published_at and
// approved_by. Must run inside the caller's OrgPolicy-locked transaction.
func (s *Store) PublishVersion(ctx context.Context, tx *sql.Tx, orgPolicyID, versionID uuid.UUID, approvedBy uuid.UUID, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE policy_versions SET is_current = false, updated_at = now()
		WHERE org_policy_id = $1 AND is_current = true AND id <> $2`, orgPolicyID, versionID); err != nil {
		return fmt.Errorf("clear previous current version: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE policy_versions
		SET status = $4, is_current = true, published_at = $3, approved_by = $2, updated_at = now()
		WHERE id = $1`, versionID, approvedBy, now, string(model.VersionPublished))
	if err != nil {
		return fmt.Errorf("publish version: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrVersionNotFound
	}
	return nil
}

// SetVersionCurrent sets or clears a single version's is_current flag
// without touching any sibling version, used by Archive to drop a
// version out of "current" status without requiring a replacement.
func (s *Store) SetVersionCurrent(ctx context.Context, q Querier, versionID uuid.UUID, current bool) error {
	_, err := q.ExecContext(ctx, `
		UPDATE policy_versions SET is_current = $2, updated_at = now() WHERE id = $1`, versionID, current)
	if err != nil {
		return fmt.Errorf("set version current: %w", err)
	}
	return nil
}

// --- PolicyApprover ---

// InsertApprover inserts a PolicyApprover row, preconditioned on the
// approver's Employee row existing (spec.md §4.2).
func (s *Store) InsertApprover(ctx context.Context, q Querier, versionID, approverID uuid.UUID, condition string) (uuid.UUID, error) {
	exists, err := s.EmployeeExists(ctx, q, approverID)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, ErrEmployeeNotFound
	}

	var id uuid.UUID
	row := q.QueryRowContext(ctx, `
		INSERT INTO policy_approvers (policy_version_id, approver_id, condition)
		VALUES ($1, $2, $3)
		RETURNING id`, versionID, approverID, condition)
	if err := row.Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrDuplicateVersion
		}
		return uuid.Nil, fmt.Errorf("insert policy approver: %w", err)
	}
	return id, nil
}

// ListApprovers returns every approver bound to a version.
func (s *Store) ListApprovers(ctx context.Context, q Querier, versionID uuid.UUID) ([]model.PolicyApprover, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, policy_version_id, approver_id, condition, status, created_at, updated_at
		FROM policy_approvers WHERE policy_version_id = $1`, versionID)
	if err != nil {
		return nil, fmt.Errorf("list approvers: %w", err)
	}
	defer rows.Close()

	var out []model.PolicyApprover
	for rows.Next() {
		var a model.PolicyApprover
		var status string
		if err := rows.Scan(&a.ID, &a.PolicyVersionID, &a.ApproverID, &a.Condition, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan approver: %w", err)
		}
		a.Status = model.ApproverStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateApproverStatus records an approver's decision.
func (s *Store) UpdateApproverStatus(ctx context.Context, q Querier, versionID, approverID uuid.UUID, status model.ApproverStatus) error {
	res, err := q.ExecContext(ctx, `
		UPDATE policy_approvers SET status = $3, updated_at = now()
		WHERE policy_version_id = $1 AND approver_id = $2`, versionID, approverID, string(status))
	if err != nil {
		return fmt.Errorf("update approver status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrApproverNotFound
	}
	return nil
}

// marshalWorkforceAssignments serializes the opaque assignment list into
// the {"assignments": [...]} envelope spec.md §4.4.1/§4.4.3 require.
func marshalWorkforceAssignments(assignments []json.RawMessage) ([]byte, error) {
	if assignments == nil {
		assignments = []json.RawMessage{}
	}
	return json.Marshal(struct {
		Assignments []json.RawMessage `json:"assignments"`
	}{Assignments: assignments})
}

// MarshalWorkforceAssignments is the exported form used by the lifecycle
// controller, which lives in a different package.
func MarshalWorkforceAssignments(assignments []json.RawMessage) ([]byte, error) {
	return marshalWorkforceAssignments(assignments)
}
