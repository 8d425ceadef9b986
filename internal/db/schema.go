// Package db provides database schema constants and the embedded SQL
// migrations together with the runner that applies them.
package db

// Table names as constants for type safety, following the teacher's
// pattern of naming every column and table once instead of scattering
// string literals across the query layer.
const (
	TableOrganizations   = "organizations"
	TablePolicyTemplates = "policy_templates"
	TableOrgPolicies     = "org_policies"
	TablePolicyVersions  = "policy_versions"
	TablePolicyApprovers = "policy_approvers"
	TableEmployees       = "employees"
	TableAuditLog        = "audit_log"
)

// Column names for the tables this service owns directly (org_policies,
// policy_versions, policy_approvers). Organizations/PolicyTemplates/
// Employees are read-only reference tables owned by other services.
const (
	ColID                   = "id"
	ColOrganizationID       = "organization_id"
	ColTitle                = "title"
	ColPolicyType           = "policy_type"
	ColCurrentTemplateHTML  = "current_template_html"
	ColDepartment           = "department"
	ColCategory             = "category"
	ColWorkforceAssignments = "workforce_assignments"
	ColCreatedAt            = "created_at"
	ColUpdatedAt            = "updated_at"

	ColOrgPolicyID        = "org_policy_id"
	ColVersion            = "version"
	ColStatus             = "status"
	ColIsCurrent          = "is_current"
	ColDiffData           = "diff_data"
	ColCheckpointTemplate = "checkpoint_template"
	ColExpiredAt          = "expired_at"
	ColPublishedAt        = "published_at"
	ColApprovedBy         = "approved_by"

	ColPolicyVersionID = "policy_version_id"
	ColApproverID      = "approver_id"
	ColCondition       = "condition"
)

// Schema constraints as constants.
const (
	MaxTitleLength = 512
)
