package lifecycle

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stakflo/policystore/internal/apperr"
	"github.com/stakflo/policystore/internal/audit"
	"github.com/stakflo/policystore/internal/condition"
	"github.com/stakflo/policystore/internal/diffcodec"
	"github.com/stakflo/policystore/internal/generator"
	"github.com/stakflo/policystore/internal/model"
	"github.com/stakflo/policystore/internal/reconstruct"
	"github.com/stakflo/policystore/internal/render"
	"github.com/stakflo/policystore/internal/store"
)

// Controller wires the store, reconstructor, condition engine, generator
// gateway, and renderer into the nine policy-document operations. It is
// the single place transactions are opened and committed: every public
// method here owns its own unit of work.
type Controller struct {
	store         *store.Store
	reconstructor *reconstruct.Reconstructor
	conditions    *condition.Engine
	generator     *generator.Client
	renderer      render.Renderer
	audit         *audit.Logger
	logger        *zap.Logger
	parentLogoURL string
}

// Config carries the fields of Controller that are not themselves
// injected collaborators.
type Config struct {
	ParentLogoURL string
}

// New builds a Controller from its collaborators.
func New(s *store.Store, r *reconstruct.Reconstructor, c *condition.Engine, g *generator.Client, rend render.Renderer, a *audit.Logger, logger *zap.Logger, cfg Config) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:         s,
		reconstructor: r,
		conditions:    c,
		generator:     g,
		renderer:      rend,
		audit:         a,
		logger:        logger,
		parentLogoURL: cfg.ParentLogoURL,
	}
}

// InitialiseInput is the request shape for Initialise.
type InitialiseInput struct {
	OrganizationID       uuid.UUID
	PolicyTemplateID     uuid.UUID
	Department           string
	Category             string
	WorkforceAssignments []json.RawMessage
}

// InitialiseResult reports the OrgPolicy an Initialise call settled on.
type InitialiseResult struct {
	OrgPolicyID uuid.UUID
	Created     bool
}

// Initialise seeds (or refreshes) an OrgPolicy's content from the
// external generator, without committing a PolicyVersion. Calling it
// twice for the same (organization, template title) pair updates the
// existing row rather than creating a second one (spec.md §4.4.1).
func (c *Controller) Initialise(ctx context.Context, in InitialiseInput) (*InitialiseResult, error) {
	db := c.store.DB()

	org, err := c.store.GetOrganization(ctx, db, in.OrganizationID)
	if err != nil {
		return nil, c.fail(ctx, audit.EventInitialise, nil, "", notFoundOrStorage(err, "organization"))
	}

	tmpl, err := c.store.GetPolicyTemplate(ctx, db, in.PolicyTemplateID)
	if err != nil {
		return nil, c.fail(ctx, audit.EventInitialise, nil, "", notFoundOrStorage(err, "policy_template"))
	}

	html, err := c.generator.GenerateInitialHTML(ctx, tmpl.TemplateHTML, org.Name, in.Department, in.Category)
	if err != nil {
		return nil, c.fail(ctx, audit.EventInitialise, nil, "", apperr.UpstreamGenerator("generate initial html", err))
	}

	wa, err := store.MarshalWorkforceAssignments(in.WorkforceAssignments)
	if err != nil {
		return nil, c.fail(ctx, audit.EventInitialise, nil, "", apperr.Validation("workforce_assignments", err.Error()))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, c.fail(ctx, audit.EventInitialise, nil, "", apperr.Storage("begin transaction", err))
	}
	defer tx.Rollback()

	policy, created, err := c.store.GetOrCreateOrgPolicy(ctx, tx, in.OrganizationID, tmpl.Title, store.OrgPolicyDefaults{
		PolicyType:           model.PolicyTypeOrgPolicy,
		CurrentTemplateHTML:  html,
		Department:           in.Department,
		Category:             in.Category,
		WorkforceAssignments: wa,
	})
	if err != nil {
		return nil, c.fail(ctx, audit.EventInitialise, nil, "", apperr.Storage("get or create org policy", err))
	}

	if !created {
		if err := c.store.UpdateOrgPolicyContent(ctx, tx, policy.ID, html, in.Department, in.Category, wa); err != nil {
			return nil, c.fail(ctx, audit.EventInitialise, &policy.ID, "", apperr.Storage("update org policy content", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, c.fail(ctx, audit.EventInitialise, &policy.ID, "", apperr.Storage("commit transaction", err))
	}

	c.audit.Record(ctx, audit.Event{EventType: audit.EventInitialise, OrgPolicyID: &policy.ID, Success: true})
	return &InitialiseResult{OrgPolicyID: policy.ID, Created: created}, nil
}

// CreateInitialVersionInput is the request shape for CreateInitialVersion.
type CreateInitialVersionInput struct {
	OrgPolicyID uuid.UUID
	HTMLContent *string // nil to use the OrgPolicy's current_template_html as-is
	ApproverID  *uuid.UUID
	Condition   string
}

// CreateInitialVersion commits a policy's first PolicyVersion ("1.0"),
// always a checkpoint, optionally binding a required approver gated by a
// CEL condition.
func (c *Controller) CreateInitialVersion(ctx context.Context, in CreateInitialVersionInput) (*model.PolicyVersion, error) {
	db := c.store.DB()

	policy, err := c.store.GetOrgPolicy(ctx, db, in.OrgPolicyID)
	if err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, nil, "1.0", notFoundOrStorage(err, "org_policy"))
	}

	html := policy.CurrentTemplateHTML
	if in.HTMLContent != nil {
		html = *in.HTMLContent
	}

	if in.ApproverID != nil {
		ok, err := c.conditions.Evaluate(in.Condition, facts(policy, 1, 0))
		if err != nil {
			return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Validation("condition", err.Error()))
		}
		if !ok {
			return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.ApproverConditionNotMet("approver condition not satisfied"))
		}
	}

	delta := diffcodec.Compute("", html)
	diffJSON, err := json.Marshal(delta)
	if err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Storage("marshal delta", err))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Storage("begin transaction", err))
	}
	defer tx.Rollback()

	if err := c.store.LockOrgPolicy(ctx, tx, policy.ID); err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", notFoundOrStorage(err, "org_policy"))
	}

	versionID, err := c.store.InsertVersion(ctx, tx, policy.ID, "1.0", diffJSON, &html, model.VersionDraft)
	if err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Storage("insert version", err))
	}

	if in.ApproverID != nil {
		if _, err := c.store.InsertApprover(ctx, tx, versionID, *in.ApproverID, in.Condition); err != nil {
			if errors.Is(err, store.ErrEmployeeNotFound) {
				return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.ApproverNotFound("approver is not a known employee"))
			}
			return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Storage("insert approver", err))
		}
	}

	if err := c.store.SetCurrentTemplateHTML(ctx, tx, policy.ID, html); err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Storage("update current template html", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Storage("commit transaction", err))
	}

	v, err := c.store.GetVersionByNumber(ctx, db, policy.ID, "1.0")
	if err != nil {
		return nil, c.fail(ctx, audit.EventCreateInitialVersion, &policy.ID, "1.0", apperr.Storage("reload inserted version", err))
	}

	c.audit.Record(ctx, audit.Event{EventType: audit.EventCreateInitialVersion, OrgPolicyID: &policy.ID, Version: "1.0", Success: true})
	return v, nil
}

// UpdateInput is the request shape for Update.
type UpdateInput struct {
	OrgPolicyID          uuid.UUID
	HTMLContent          string
	WorkforceAssignments []json.RawMessage
	ApproverID           uuid.UUID
	Condition            string
	Version              string // caller-supplied explicit version, optional
}

// Update commits a new PolicyVersion computed against the policy's
// immediate predecessor, applying spec.md §4.4.3's version-bump rule and
// §4.3's checkpoint cadence, and binds a required approver.
func (c *Controller) Update(ctx context.Context, in UpdateInput) (*model.PolicyVersion, error) {
	db := c.store.DB()

	policy, err := c.store.GetOrgPolicy(ctx, db, in.OrgPolicyID)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, nil, in.Version, notFoundOrStorage(err, "org_policy"))
	}

	exists, err := c.store.EmployeeExists(ctx, db, in.ApproverID)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, apperr.Storage("check employee exists", err))
	}
	if !exists {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, apperr.ApproverNotFound("approver is not a known employee"))
	}

	wa, err := store.MarshalWorkforceAssignments(in.WorkforceAssignments)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, apperr.Validation("workforce_assignments", err.Error()))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, apperr.Storage("begin transaction", err))
	}
	defer tx.Rollback()

	if err := c.store.LockOrgPolicy(ctx, tx, policy.ID); err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, notFoundOrStorage(err, "org_policy"))
	}

	position, err := c.store.CountVersions(ctx, tx, policy.ID)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, apperr.Storage("count versions", err))
	}
	position++

	var predecessor *parsedVersion
	var oldHTML string
	expired := false

	last, err := c.store.LatestVersion(ctx, tx, policy.ID)
	switch {
	case err == nil:
		expired = last.ExpiredAt != nil && time.Now().After(*last.ExpiredAt)
		if pv, ok := parseVersion(last.Version); ok {
			predecessor = &pv
		}
		oldHTML, err = c.reconstructor.Reconstruct(ctx, tx, policy.ID, last.Version)
		if err != nil {
			return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, apperr.Storage("reconstruct predecessor", err))
		}
	case errors.Is(err, store.ErrVersionNotFound):
		oldHTML = ""
	default:
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, in.Version, apperr.Storage("load latest version", err))
	}

	newVersion := nextVersion(in.Version, predecessor, expired)
	newMajor, newMinor := mustParse(newVersion)

	ok, err := c.conditions.Evaluate(in.Condition, facts(policy, newMajor, newMinor))
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Validation("condition", err.Error()))
	}
	if !ok {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.ApproverConditionNotMet("approver condition not satisfied"))
	}

	delta := diffcodec.Compute(oldHTML, in.HTMLContent)
	diffJSON, err := json.Marshal(delta)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Storage("marshal delta", err))
	}

	var checkpointHTML *string
	if checkpointCadence(position) {
		html := in.HTMLContent
		checkpointHTML = &html
	}

	versionID, err := c.store.InsertVersion(ctx, tx, policy.ID, newVersion, diffJSON, checkpointHTML, model.VersionDraft)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Storage("insert version", err))
	}

	if err := c.store.UpdateOrgPolicyWorkforceAssignments(ctx, tx, policy.ID, wa); err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Storage("update workforce assignments", err))
	}

	if err := c.store.SetCurrentTemplateHTML(ctx, tx, policy.ID, in.HTMLContent); err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Storage("update current template html", err))
	}

	if _, err := c.store.InsertApprover(ctx, tx, versionID, in.ApproverID, in.Condition); err != nil {
		if errors.Is(err, store.ErrEmployeeNotFound) {
			return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.ApproverNotFound("approver is not a known employee"))
		}
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Storage("insert approver", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Storage("commit transaction", err))
	}

	c.reconstructor.Invalidate(ctx, policy.ID)

	v, err := c.store.GetVersionByNumber(ctx, db, policy.ID, newVersion)
	if err != nil {
		return nil, c.fail(ctx, audit.EventUpdate, &policy.ID, newVersion, apperr.Storage("reload inserted version", err))
	}

	c.audit.Record(ctx, audit.Event{EventType: audit.EventUpdate, OrgPolicyID: &policy.ID, Version: newVersion, Success: true})
	return v, nil
}

// ReadResult is the response shape for ReadVersion.
type ReadResult struct {
	OrgPolicyID uuid.UUID
	Version     string
	Status      model.VersionStatus
	HTML        string
	CreatedAt   time.Time
}

// ReadVersion reconstructs and returns a version's HTML, defaulting to
// the most recently created version when version is empty.
func (c *Controller) ReadVersion(ctx context.Context, orgPolicyID uuid.UUID, version string) (*ReadResult, error) {
	db := c.store.DB()

	if _, err := c.store.GetOrgPolicy(ctx, db, orgPolicyID); err != nil {
		return nil, notFoundOrStorage(err, "org_policy")
	}

	if version == "" {
		html, resolved, err := c.reconstructor.ReconstructLatest(ctx, db, orgPolicyID)
		if err != nil {
			return nil, mapVersionErr(err)
		}
		version = resolved
		v, err := c.store.GetVersionByNumber(ctx, db, orgPolicyID, version)
		if err != nil {
			return nil, mapVersionErr(err)
		}
		return &ReadResult{OrgPolicyID: orgPolicyID, Version: version, Status: v.Status, HTML: html, CreatedAt: v.CreatedAt}, nil
	}

	v, err := c.store.GetVersionByNumber(ctx, db, orgPolicyID, version)
	if err != nil {
		return nil, mapVersionErr(err)
	}
	html, err := c.reconstructor.Reconstruct(ctx, db, orgPolicyID, version)
	if err != nil {
		return nil, mapVersionErr(err)
	}
	return &ReadResult{OrgPolicyID: orgPolicyID, Version: version, Status: v.Status, HTML: html, CreatedAt: v.CreatedAt}, nil
}

// RenderResult is the response shape for RenderPDF.
type RenderResult struct {
	PDFBase64   string
	Version     string
	PolicyTitle string
	Status      model.VersionStatus
	CreatedAt   time.Time
}

// RenderPDF reconstructs a version's HTML and converts it to a PDF,
// wrapped in the branding header built from the owning Organization.
func (c *Controller) RenderPDF(ctx context.Context, orgPolicyID uuid.UUID, version string) (*RenderResult, error) {
	db := c.store.DB()

	policy, err := c.store.GetOrgPolicy(ctx, db, orgPolicyID)
	if err != nil {
		return nil, notFoundOrStorage(err, "org_policy")
	}

	read, err := c.ReadVersion(ctx, orgPolicyID, version)
	if err != nil {
		return nil, err
	}

	org, err := c.store.GetOrganization(ctx, db, policy.OrganizationID)
	if err != nil {
		return nil, notFoundOrStorage(err, "organization")
	}

	header := render.HeaderContext{
		OrganizationLogoURL: org.Logo(),
		ParentLogoURL:       c.parentLogoURL,
		PolicyTitle:         policy.Title,
		CompanyName:         org.Name,
	}

	pdfBytes, err := c.renderer.Render(ctx, read.HTML, header)
	if err != nil {
		return nil, apperr.Render("render pdf", err)
	}

	return &RenderResult{
		PDFBase64:   base64.StdEncoding.EncodeToString(pdfBytes),
		Version:     read.Version,
		PolicyTitle: policy.Title,
		Status:      read.Status,
		CreatedAt:   read.CreatedAt,
	}, nil
}

// Submit transitions a version from draft to in_review. Calling it on a
// version already in_review is a no-op success.
func (c *Controller) Submit(ctx context.Context, orgPolicyID uuid.UUID, version string) error {
	db := c.store.DB()

	v, err := c.store.GetVersionByNumber(ctx, db, orgPolicyID, version)
	if err != nil {
		return c.fail(ctx, audit.EventSubmit, &orgPolicyID, version, mapVersionErr(err))
	}

	switch v.Status {
	case model.VersionInReview:
		c.audit.Record(ctx, audit.Event{EventType: audit.EventSubmit, OrgPolicyID: &orgPolicyID, Version: version, Success: true, Detail: "already in_review"})
		return nil
	case model.VersionDraft:
		if err := c.store.UpdateVersionStatus(ctx, db, v.ID, model.VersionInReview); err != nil {
			return c.fail(ctx, audit.EventSubmit, &orgPolicyID, version, apperr.Storage("update version status", err))
		}
		c.audit.Record(ctx, audit.Event{EventType: audit.EventSubmit, OrgPolicyID: &orgPolicyID, Version: version, Success: true})
		return nil
	default:
		return c.fail(ctx, audit.EventSubmit, &orgPolicyID, version, apperr.Validation("status", fmt.Sprintf("cannot submit a version in %q status", v.Status)))
	}
}

// Publish transitions a version from in_review to published, requiring
// at least one approved PolicyApprover, and atomically flips is_current
// under the OrgPolicy's row lock. Calling it on an already-published
// version is a no-op success.
func (c *Controller) Publish(ctx context.Context, orgPolicyID uuid.UUID, version string) error {
	db := c.store.DB()

	v, err := c.store.GetVersionByNumber(ctx, db, orgPolicyID, version)
	if err != nil {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, mapVersionErr(err))
	}

	if v.Status == model.VersionPublished {
		c.audit.Record(ctx, audit.Event{EventType: audit.EventPublish, OrgPolicyID: &orgPolicyID, Version: version, Success: true, Detail: "already published"})
		return nil
	}
	if v.Status != model.VersionInReview {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, apperr.Validation("status", fmt.Sprintf("cannot publish a version in %q status; submit it for review first", v.Status)))
	}

	approvers, err := c.store.ListApprovers(ctx, db, v.ID)
	if err != nil {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, apperr.Storage("list approvers", err))
	}
	var approvedBy *uuid.UUID
	for i := range approvers {
		if approvers[i].Status == model.ApproverApproved {
			approvedBy = &approvers[i].ApproverID
			break
		}
	}
	if approvedBy == nil {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, apperr.ApprovalIncomplete("no approved approver recorded for this version"))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, apperr.Storage("begin transaction", err))
	}
	defer tx.Rollback()

	// Lock the OrgPolicy row so a concurrent Publish for a sibling version
	// cannot race this one's is_current flip.
	if err := c.store.LockOrgPolicy(ctx, tx, orgPolicyID); err != nil {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, notFoundOrStorage(err, "org_policy"))
	}

	if err := c.store.PublishVersion(ctx, tx, orgPolicyID, v.ID, *approvedBy, time.Now()); err != nil {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, apperr.Storage("publish version", err))
	}

	if err := tx.Commit(); err != nil {
		return c.fail(ctx, audit.EventPublish, &orgPolicyID, version, apperr.Storage("commit transaction", err))
	}

	c.reconstructor.Invalidate(ctx, orgPolicyID)
	c.audit.Record(ctx, audit.Event{EventType: audit.EventPublish, OrgPolicyID: &orgPolicyID, Version: version, Success: true})
	return nil
}

// Archive transitions a version to archived from any status, clearing
// is_current if it was set. Idempotent.
func (c *Controller) Archive(ctx context.Context, orgPolicyID uuid.UUID, version string) error {
	db := c.store.DB()

	v, err := c.store.GetVersionByNumber(ctx, db, orgPolicyID, version)
	if err != nil {
		return c.fail(ctx, audit.EventArchive, &orgPolicyID, version, mapVersionErr(err))
	}

	if v.Status == model.VersionArchived && !v.IsCurrent {
		c.audit.Record(ctx, audit.Event{EventType: audit.EventArchive, OrgPolicyID: &orgPolicyID, Version: version, Success: true, Detail: "already archived"})
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return c.fail(ctx, audit.EventArchive, &orgPolicyID, version, apperr.Storage("begin transaction", err))
	}
	defer tx.Rollback()

	if err := c.store.LockOrgPolicy(ctx, tx, orgPolicyID); err != nil {
		return c.fail(ctx, audit.EventArchive, &orgPolicyID, version, notFoundOrStorage(err, "org_policy"))
	}

	if err := c.store.UpdateVersionStatus(ctx, tx, v.ID, model.VersionArchived); err != nil {
		return c.fail(ctx, audit.EventArchive, &orgPolicyID, version, apperr.Storage("update version status", err))
	}
	if v.IsCurrent {
		if err := c.store.SetVersionCurrent(ctx, tx, v.ID, false); err != nil {
			return c.fail(ctx, audit.EventArchive, &orgPolicyID, version, apperr.Storage("clear is_current", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return c.fail(ctx, audit.EventArchive, &orgPolicyID, version, apperr.Storage("commit transaction", err))
	}

	c.reconstructor.Invalidate(ctx, orgPolicyID)
	c.audit.Record(ctx, audit.Event{EventType: audit.EventArchive, OrgPolicyID: &orgPolicyID, Version: version, Success: true})
	return nil
}

// ApproveDecision records an approver's decision (approved or rejected)
// against a specific PolicyVersion. Idempotent: recording the same
// decision twice succeeds both times.
func (c *Controller) ApproveDecision(ctx context.Context, policyVersionID, approverID uuid.UUID, decision model.ApproverStatus) error {
	if decision != model.ApproverApproved && decision != model.ApproverRejected {
		return apperr.Validation("decision", fmt.Sprintf("decision must be %q or %q, got %q", model.ApproverApproved, model.ApproverRejected, decision))
	}

	db := c.store.DB()
	if err := c.store.UpdateApproverStatus(ctx, db, policyVersionID, approverID, decision); err != nil {
		if errors.Is(err, store.ErrApproverNotFound) {
			return c.fail(ctx, audit.EventApprove, nil, "", apperr.ApproverNotFound("no such approver binding for this version"))
		}
		return c.fail(ctx, audit.EventApprove, nil, "", apperr.Storage("update approver status", err))
	}

	c.audit.Record(ctx, audit.Event{EventType: audit.EventApprove, Success: true, Detail: string(decision)})
	return nil
}

// fail records a failed audit event and returns err unchanged, so every
// operation above can audit its own failures in one line.
func (c *Controller) fail(ctx context.Context, eventType audit.EventType, orgPolicyID *uuid.UUID, version string, err error) error {
	c.audit.Record(ctx, audit.Event{
		EventType:   eventType,
		OrgPolicyID: orgPolicyID,
		Version:     version,
		Success:     false,
		Detail:      err.Error(),
	})
	return err
}

// facts builds the PolicyFacts a bound approver's condition may inspect.
func facts(policy *model.OrgPolicy, major, minor int64) model.PolicyFacts {
	return model.PolicyFacts{
		Department:   policy.Department,
		Category:     policy.Category,
		PolicyType:   string(policy.PolicyType),
		VersionMajor: major,
		VersionMinor: minor,
	}
}

func mustParse(version string) (int64, int64) {
	pv, ok := parseVersion(version)
	if !ok {
		return 0, 0
	}
	return int64(pv.Major), int64(pv.Minor)
}

// notFoundOrStorage classifies a store lookup error as apperr.NotFound
// when it is one of the package's sentinel not-found errors, or
// apperr.Storage otherwise.
func notFoundOrStorage(err error, resource string) error {
	switch {
	case errors.Is(err, store.ErrOrgPolicyNotFound),
		errors.Is(err, store.ErrOrganizationNotFound),
		errors.Is(err, store.ErrTemplateNotFound),
		errors.Is(err, store.ErrEmployeeNotFound),
		errors.Is(err, store.ErrVersionNotFound),
		errors.Is(err, store.ErrApproverNotFound):
		return apperr.NotFound(resource, err.Error())
	default:
		return apperr.Storage(fmt.Sprintf("load %s", resource), err)
	}
}

func mapVersionErr(err error) error {
	if errors.Is(err, store.ErrVersionNotFound) {
		return apperr.NotFound("policy_version", err.Error())
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("policy_version", err.Error())
	}
	return apperr.Storage("load version", err)
}
