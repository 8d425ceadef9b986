// Package model defines the domain record types persisted by the policy
// document store: organizations, policy templates, per-tenant policies,
// their versioned history, and approver bindings.
package model

import (
	"time"

	"github.com/google/uuid"
)

// OrgStatus is the lifecycle status of an Organization.
type OrgStatus string

const (
	OrgStatusActive   OrgStatus = "active"
	OrgStatusInactive OrgStatus = "inactive"
)

// Organization is a tenant. Immutable once created except for profile fields.
type Organization struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Domain    string    `db:"domain"`
	LightLogo string    `db:"light_logo"`
	DarkLogo  string    `db:"dark_logo"`
	Status    OrgStatus `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Logo returns the preferred logo URL for rendering, falling back to the
// dark logo and finally the organization name, mirroring the source
// system's get_policy_pdf_op fallback chain.
func (o Organization) Logo() string {
	if o.LightLogo != "" {
		return o.LightLogo
	}
	if o.DarkLogo != "" {
		return o.DarkLogo
	}
	return o.Name
}

// PolicyType distinguishes policies authored fresh versus adopted from an
// existing document.
type PolicyType string

const (
	PolicyTypeOrgPolicy      PolicyType = "orgpolicy"
	PolicyTypeExistingPolicy PolicyType = "existingpolicy"
)

// PolicyTemplate is read-only seed content used to initialize an OrgPolicy.
type PolicyTemplate struct {
	ID           uuid.UUID `db:"id"`
	Title        string    `db:"title"`
	Code         string    `db:"code"`
	Description  string    `db:"description"`
	TemplateHTML string    `db:"template_html"`
	Group        string    `db:"group_name"`
	Version      string    `db:"version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// OrgPolicy is the per-tenant adoption of a policy. current_template_html
// always mirrors the HTML of the most recently committed PolicyVersion.
type OrgPolicy struct {
	ID                   uuid.UUID  `db:"id"`
	OrganizationID       uuid.UUID  `db:"organization_id"`
	Title                string     `db:"title"`
	PolicyType           PolicyType `db:"policy_type"`
	CurrentTemplateHTML  string     `db:"current_template_html"`
	Department           string     `db:"department"`
	Category             string     `db:"category"`
	WorkforceAssignments []byte     `db:"workforce_assignments"` // raw JSON: {"assignments": [...]}
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// VersionStatus is the lifecycle state of a PolicyVersion.
type VersionStatus string

const (
	VersionDraft     VersionStatus = "draft"
	VersionInReview  VersionStatus = "in_review"
	VersionPublished VersionStatus = "published"
	VersionArchived  VersionStatus = "archived"
)

// PolicyVersion is one immutable entry in a policy's history. A version
// with a non-nil CheckpointTemplate (even an empty one) is a checkpoint: reconstruction may
// start directly from it instead of replaying from the previous checkpoint.
type PolicyVersion struct {
	ID                uuid.UUID     `db:"id"`
	OrgPolicyID        uuid.UUID     `db:"org_policy_id"`
	Version            string        `db:"version"`
	Status            VersionStatus `db:"status"`
	IsCurrent         bool          `db:"is_current"`
	DiffData          []byte        `db:"diff_data"` // serialized diffcodec.Delta JSON
	CheckpointTemplate *string       `db:"checkpoint_template"`
	ExpiredAt         *time.Time    `db:"expired_at"`
	PublishedAt       *time.Time    `db:"published_at"`
	ApprovedBy        *uuid.UUID    `db:"approved_by"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
}

// IsCheckpoint reports whether this version carries a full-text checkpoint.
func (v PolicyVersion) IsCheckpoint() bool {
	return v.CheckpointTemplate != nil
}

// ApproverStatus is the decision state of a PolicyApprover binding.
type ApproverStatus string

const (
	ApproverPending  ApproverStatus = "pending"
	ApproverApproved ApproverStatus = "approved"
	ApproverRejected ApproverStatus = "rejected"
)

// PolicyApprover binds an Employee to a PolicyVersion as a required
// approver, optionally gated by a CEL condition (see internal/condition).
type PolicyApprover struct {
	ID              uuid.UUID      `db:"id"`
	PolicyVersionID uuid.UUID      `db:"policy_version_id"`
	ApproverID      uuid.UUID      `db:"approver_id"`
	Condition       string         `db:"condition"`
	Status          ApproverStatus `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Employee is an external identity referenced only as an approver's
// foreign key; this service never manages employee records.
type Employee struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}

// PolicyFacts is the small set of attributes an approver's CEL condition
// may reference, derived from the OrgPolicy and the version being bound.
type PolicyFacts struct {
	Department   string
	Category     string
	PolicyType   string
	VersionMajor int64
	VersionMinor int64
}

// AsCELInput converts PolicyFacts into the map cel-go activation expects.
func (f PolicyFacts) AsCELInput() map[string]interface{} {
	return map[string]interface{}{
		"department":    f.Department,
		"category":      f.Category,
		"policy_type":   f.PolicyType,
		"version_major": f.VersionMajor,
		"version_minor": f.VersionMinor,
	}
}
