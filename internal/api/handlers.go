package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stakflo/policystore/internal/apperr"
	"github.com/stakflo/policystore/internal/lifecycle"
	"github.com/stakflo/policystore/internal/model"
)

// respondSuccess writes the {"message","status":"success",...} envelope
// spec.md §6 mandates.
func respondSuccess(c *gin.Context, status int, message string, payload gin.H) {
	body := gin.H{"message": message, "status": "success"}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError writes the {"message","status":"error","error":...}
// envelope, mapping a classified apperr.Error to its HTTP status or
// falling back to 500 for anything else.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.HTTPStatus(), gin.H{
			"message": appErr.Message,
			"status":  "error",
			"error":   appErr.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"message": "internal error",
		"status":  "error",
		"error":   err.Error(),
	})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Validation("body", err.Error()))
		return false
	}
	return true
}

// --- /policy/initialise ---

type initialiseRequest struct {
	OrganizationID      uuid.UUID         `json:"organization_id" binding:"required"`
	PolicyTemplateID    uuid.UUID         `json:"policy_template_id" binding:"required"`
	Department          string            `json:"department"`
	Category            string            `json:"category"`
	WorkforceAssignment []json.RawMessage `json:"workforce_assignment"`
}

func (s *Server) handleInitialise(c *gin.Context) {
	var req initialiseRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.controller.Initialise(c.Request.Context(), lifecycle.InitialiseInput{
		OrganizationID:       req.OrganizationID,
		PolicyTemplateID:     req.PolicyTemplateID,
		Department:           req.Department,
		Category:             req.Category,
		WorkforceAssignments: req.WorkforceAssignment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	message := "org policy content updated"
	if result.Created {
		status = http.StatusCreated
		message = "org policy initialised"
	}
	respondSuccess(c, status, message, gin.H{"org_policy_id": result.OrgPolicyID})
}

// --- /policy/create-initialised ---

type createInitialVersionRequest struct {
	OrgPolicyID uuid.UUID  `json:"org_policy_id" binding:"required"`
	HTMLContent *string    `json:"html_content"`
	ApproverID  *uuid.UUID `json:"approver_id"`
	Condition   string     `json:"condition"`
}

func (s *Server) handleCreateInitialVersion(c *gin.Context) {
	var req createInitialVersionRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := s.controller.CreateInitialVersion(c.Request.Context(), lifecycle.CreateInitialVersionInput{
		OrgPolicyID: req.OrgPolicyID,
		HTMLContent: req.HTMLContent,
		ApproverID:  req.ApproverID,
		Condition:   req.Condition,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "initial version created", gin.H{
		"version":    v.Version,
		"status":     v.Status,
		"created_at": v.CreatedAt,
	})
}

// --- /policy/update ---

type updateRequest struct {
	OrgPolicyID         uuid.UUID         `json:"org_policy_id" binding:"required"`
	OrganizationID      uuid.UUID         `json:"organization_id" binding:"required"`
	HTMLContent         string            `json:"html_content" binding:"required"`
	WorkforceAssignment []json.RawMessage `json:"workforce_assignment"`
	ApproverID          uuid.UUID         `json:"approver" binding:"required"`
	Condition           string            `json:"condition"`
	Version             string            `json:"version"`
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := s.controller.Update(c.Request.Context(), lifecycle.UpdateInput{
		OrgPolicyID:          req.OrgPolicyID,
		HTMLContent:          req.HTMLContent,
		WorkforceAssignments: req.WorkforceAssignment,
		ApproverID:           req.ApproverID,
		Condition:            req.Condition,
		Version:              req.Version,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "policy version created", gin.H{
		"version":    v.Version,
		"status":     v.Status,
		"created_at": v.CreatedAt,
	})
}

// --- /policy/data ---

type dataRequest struct {
	OrgPolicyID uuid.UUID `json:"org_policy_id" binding:"required"`
	Version     string    `json:"version"`
}

func (s *Server) handleData(c *gin.Context) {
	var req dataRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.controller.ReadVersion(c.Request.Context(), req.OrgPolicyID, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "policy version reconstructed", gin.H{
		"org_policy_id": result.OrgPolicyID,
		"version":       result.Version,
		"status":        result.Status,
		"created_at":    result.CreatedAt,
		"html_content":  result.HTML,
	})
}

// --- /policy/download ---

type downloadRequest struct {
	OrgPolicyID    uuid.UUID `json:"org_policy_id" binding:"required"`
	Version        string    `json:"version"`
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
}

func (s *Server) handleDownload(c *gin.Context) {
	var req downloadRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.controller.RenderPDF(c.Request.Context(), req.OrgPolicyID, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "policy rendered", gin.H{
		"version":      result.Version,
		"policy_title": result.PolicyTitle,
		"status":       result.Status,
		"created_at":   result.CreatedAt,
		"pdf_base64":   result.PDFBase64,
	})
}

// --- /policy/submit, /policy/publish, /policy/archive ---

type versionActionRequest struct {
	OrgPolicyID uuid.UUID `json:"org_policy_id" binding:"required"`
	Version     string    `json:"version" binding:"required"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req versionActionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.controller.Submit(c.Request.Context(), req.OrgPolicyID, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "policy version submitted for review", gin.H{"version": req.Version})
}

func (s *Server) handlePublish(c *gin.Context) {
	var req versionActionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.controller.Publish(c.Request.Context(), req.OrgPolicyID, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "policy version published", gin.H{"version": req.Version})
}

func (s *Server) handleArchive(c *gin.Context) {
	var req versionActionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.controller.Archive(c.Request.Context(), req.OrgPolicyID, req.Version); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "policy version archived", gin.H{"version": req.Version})
}

// --- /policy/approve ---

type approveRequest struct {
	PolicyVersionID uuid.UUID            `json:"policy_version_id" binding:"required"`
	ApproverID      uuid.UUID            `json:"approver_id" binding:"required"`
	Decision        model.ApproverStatus `json:"decision" binding:"required"`
}

func (s *Server) handleApprove(c *gin.Context) {
	var req approveRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.controller.ApproveDecision(c.Request.Context(), req.PolicyVersionID, req.ApproverID, req.Decision); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "approver decision recorded", gin.H{"decision": req.Decision})
}
