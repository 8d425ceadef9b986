package lifecycle

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakflo/policystore/internal/apperr"
	"github.com/stakflo/policystore/internal/model"
	"github.com/stakflo/policystore/internal/store"
)

func TestFactsDerivesFromOrgPolicy(t *testing.T) {
	policy := &model.OrgPolicy{
		Department: "legal",
		Category:   "compliance",
		PolicyType: model.PolicyTypeOrgPolicy,
	}

	f := facts(policy, 2, 1)
	assert.Equal(t, "legal", f.Department)
	assert.Equal(t, "compliance", f.Category)
	assert.Equal(t, "orgpolicy", f.PolicyType)
	assert.Equal(t, int64(2), f.VersionMajor)
	assert.Equal(t, int64(1), f.VersionMinor)
}

func TestMustParse(t *testing.T) {
	major, minor := mustParse("3.4")
	assert.Equal(t, int64(3), major)
	assert.Equal(t, int64(4), minor)

	major, minor = mustParse("not-a-version")
	assert.Equal(t, int64(0), major)
	assert.Equal(t, int64(0), minor)
}

func TestNotFoundOrStorageClassifiesSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind apperr.Kind
	}{
		{"org policy not found", store.ErrOrgPolicyNotFound, apperr.KindNotFound},
		{"organization not found", store.ErrOrganizationNotFound, apperr.KindNotFound},
		{"template not found", store.ErrTemplateNotFound, apperr.KindNotFound},
		{"employee not found", store.ErrEmployeeNotFound, apperr.KindNotFound},
		{"version not found", store.ErrVersionNotFound, apperr.KindNotFound},
		{"approver not found", store.ErrApproverNotFound, apperr.KindNotFound},
		{"unexpected db error", errors.New("connection reset"), apperr.KindStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := notFoundOrStorage(tt.err, "org_policy")
			appErr, ok := apperr.As(err)
			assert.True(t, ok)
			assert.Equal(t, tt.kind, appErr.Kind)
		})
	}
}

func TestMapVersionErr(t *testing.T) {
	appErr, ok := apperr.As(mapVersionErr(store.ErrVersionNotFound))
	assert.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)

	appErr, ok = apperr.As(mapVersionErr(sql.ErrNoRows))
	assert.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)

	appErr, ok = apperr.As(mapVersionErr(errors.New("boom")))
	assert.True(t, ok)
	assert.Equal(t, apperr.KindStorage, appErr.Kind)
}
