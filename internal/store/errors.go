package store

import "errors"

// Sentinel errors returned by the store's single-row lookups, following
// the teacher's apikey.PostgresStore pattern of mapping sql.ErrNoRows to
// a package-level sentinel the caller can compare against.
var (
	ErrOrgPolicyNotFound    = errors.New("org policy not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrTemplateNotFound     = errors.New("policy template not found")
	ErrEmployeeNotFound     = errors.New("employee not found")
	ErrVersionNotFound      = errors.New("policy version not found")
	ErrApproverNotFound     = errors.New("policy approver not found")
	ErrDuplicateOrgPolicy   = errors.New("org policy already exists for (organization_id, title)")
	ErrDuplicateVersion     = errors.New("version already exists for this policy")
)
