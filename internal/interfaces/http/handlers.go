package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/draftflow/internal/application/service"
	"github.com/garyjia/draftflow/internal/domain/draft"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	drafts         service.DraftService
	templates      service.TemplateService
	groups         service.GroupService
	exporter       HistoryExporter
	health         HealthFunc
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, maxUploadBytes int64) *Handlers {
	return &Handlers{
		drafts:         deps.Drafts,
		templates:      deps.Templates,
		groups:         deps.Groups,
		exporter:       deps.Exporter,
		health:         deps.Health,
		maxUploadBytes: maxUploadBytes,
		logger:         deps.Logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		resp.Components = details
		if !healthy {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    resp,
	})
}

// CreateDraft handles POST /api/drafts
func (h *Handlers) CreateDraft(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	snap, err := h.drafts.CreateDraft(c.Request.Context(), callerFrom(c), req.toInput())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: snap})
}

// ListDrafts handles GET /api/drafts
func (h *Handlers) ListDrafts(c *gin.Context) {
	var req ListDraftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	list, err := h.drafts.ListDrafts(c.Request.Context(), callerFrom(c), service.ListDraftsQuery{
		Status:          req.Status,
		BusinessFeature: req.BusinessFeature,
		CreatedBy:       req.CreatedBy,
		Title:           req.Title,
		Limit:           req.Limit,
		Offset:          req.Offset,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, list)
}

// GetDraft handles GET /api/drafts/:id
func (h *Handlers) GetDraft(c *gin.Context) {
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	snap, err := h.drafts.GetDraft(c.Request.Context(), callerFrom(c), draftID)
	respond(c, snap, err)
}

// SubmitDraft handles POST /api/drafts/:id/submit
func (h *Handlers) SubmitDraft(c *gin.Context) {
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	snap, err := h.drafts.SubmitDraft(c.Request.Context(), callerFrom(c), draftID)
	respond(c, snap, err)
}

// ResubmitDraft handles POST /api/drafts/:id/resubmit
func (h *Handlers) ResubmitDraft(c *gin.Context) {
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	snap, err := h.drafts.Resubmit(c.Request.Context(), callerFrom(c), draftID)
	respond(c, snap, err)
}

// CancelDraft handles POST /api/drafts/:id/cancel
func (h *Handlers) CancelDraft(c *gin.Context) {
	draftID, req, bound := bindReason(c)
	if !bound {
		return
	}
	snap, err := h.drafts.Cancel(c.Request.Context(), callerFrom(c), draftID, req.Reason)
	respond(c, snap, err)
}

// WithdrawDraft handles POST /api/drafts/:id/withdraw
func (h *Handlers) WithdrawDraft(c *gin.Context) {
	draftID, req, bound := bindReason(c)
	if !bound {
		return
	}
	snap, err := h.drafts.Withdraw(c.Request.Context(), callerFrom(c), draftID, req.Reason)
	respond(c, snap, err)
}

// ApproveStep handles POST /api/drafts/:id/steps/:stepId/approve
func (h *Handlers) ApproveStep(c *gin.Context) {
	h.stepAction(c, h.drafts.Approve)
}

// RejectStep handles POST /api/drafts/:id/steps/:stepId/reject
func (h *Handlers) RejectStep(c *gin.Context) {
	h.stepAction(c, h.drafts.Reject)
}

// DeferStep handles POST /api/drafts/:id/steps/:stepId/defer
func (h *Handlers) DeferStep(c *gin.Context) {
	h.stepAction(c, h.drafts.Defer)
}

// ApproveDeferredStep handles POST /api/drafts/:id/steps/:stepId/approve-deferred
func (h *Handlers) ApproveDeferredStep(c *gin.Context) {
	h.stepAction(c, h.drafts.ApproveDeferred)
}

type stepActionFunc func(ctx context.Context, caller service.Caller, draftID, stepID int64, comment string) (*service.DraftSnapshot, error)

func (h *Handlers) stepAction(c *gin.Context, action stepActionFunc) {
	draftID, stepID, err := stepPath(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req StepActionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		bindError(c, err)
		return
	}
	snap, err := action(c.Request.Context(), callerFrom(c), draftID, stepID, req.Comment)
	respond(c, snap, err)
}

// DelegateStep handles POST /api/drafts/:id/steps/:stepId/delegate
func (h *Handlers) DelegateStep(c *gin.Context) {
	draftID, stepID, err := stepPath(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req DelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	snap, err := h.drafts.Delegate(c.Request.Context(), callerFrom(c), draftID, stepID, req.DelegatedTo, req.Comment)
	respond(c, snap, err)
}

// ListHistory handles GET /api/drafts/:id/history
func (h *Handlers) ListHistory(c *gin.Context) {
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	history, err := h.drafts.ListHistory(c.Request.Context(), callerFrom(c), draftID)
	respond(c, history, err)
}

// ExportHistory handles GET /api/drafts/:id/history/export
func (h *Handlers) ExportHistory(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, Response{Success: false, Error: "history export is not configured"})
		return
	}
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	caller := callerFrom(c)
	snap, err := h.drafts.GetDraft(ctx, caller, draftID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	history, err := h.drafts.ListHistory(ctx, caller, draftID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Export(&buf, snap, history); err != nil {
		_ = c.Error(fmt.Errorf("failed to export history: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exporter.FileName(draftID)))
	c.Data(http.StatusOK, h.exporter.ContentType(), buf.Bytes())
}

// ListReferences handles GET /api/drafts/:id/references
func (h *Handlers) ListReferences(c *gin.Context) {
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	refs, err := h.drafts.ListReferences(c.Request.Context(), callerFrom(c), draftID)
	respond(c, refs, err)
}

// UploadAttachment handles POST /api/drafts/:id/attachments (multipart field "file")
func (h *Handlers) UploadAttachment(c *gin.Context) {
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		_ = c.Error(fmt.Errorf("%w: multipart field \"file\" is required", draft.ErrInvalidArgument))
		return
	}
	if header.Size > h.maxUploadBytes {
		_ = c.Error(fmt.Errorf("%w: attachment exceeds %d bytes", draft.ErrInvalidArgument, h.maxUploadBytes))
		return
	}

	file, err := header.Open()
	if err != nil {
		_ = c.Error(fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		_ = c.Error(fmt.Errorf("failed to read upload: %w", err))
		return
	}
	if int64(len(content)) > h.maxUploadBytes {
		_ = c.Error(fmt.Errorf("%w: attachment exceeds %d bytes", draft.ErrInvalidArgument, h.maxUploadBytes))
		return
	}

	snap, err := h.drafts.AddAttachment(c.Request.Context(), callerFrom(c), draftID, service.AttachmentUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: snap})
}

// DownloadAttachment handles GET /api/drafts/:id/attachments/:attachmentId
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	attachmentID, err := pathID(c, "attachmentId")
	if err != nil {
		_ = c.Error(err)
		return
	}

	att, err := h.drafts.GetAttachment(c.Request.Context(), callerFrom(c), draftID, attachmentID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
	c.Data(http.StatusOK, contentType, att.Content)
}

// CreateTemplate handles POST /api/templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	view, err := h.templates.CreateTemplate(c.Request.Context(), callerFrom(c), req.toInput())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: view})
}

// ListTemplates handles GET /api/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	var req ListTemplatesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	views, err := h.templates.ListTemplates(c.Request.Context(), callerFrom(c), req.BusinessFeature)
	respond(c, views, err)
}

// GetTemplate handles GET /api/templates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	templateID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.templates.GetTemplate(c.Request.Context(), callerFrom(c), templateID)
	respond(c, view, err)
}

// ReplaceTemplateSteps handles PUT /api/templates/:id/steps
func (h *Handlers) ReplaceTemplateSteps(c *gin.Context) {
	templateID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req ReplaceStepsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	view, err := h.templates.ReplaceTemplateSteps(c.Request.Context(), callerFrom(c), templateID, toTemplateSteps(req.Steps))
	respond(c, view, err)
}

// DeactivateTemplate handles POST /api/templates/:id/deactivate
func (h *Handlers) DeactivateTemplate(c *gin.Context) {
	templateID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.templates.DeactivateTemplate(c.Request.Context(), callerFrom(c), templateID)
	respond(c, view, err)
}

// ListGroupMembers handles GET /api/approval-groups/:code/members
func (h *Handlers) ListGroupMembers(c *gin.Context) {
	code := c.Param("code")
	members, err := h.groups.ListMembers(c.Request.Context(), callerFrom(c), code)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if members == nil {
		members = []string{}
	}
	ok(c, GroupMembersResponse{GroupCode: code, Members: members})
}

// SetGroupMember handles PUT /api/approval-groups/:code/members/:userId
func (h *Handlers) SetGroupMember(c *gin.Context) {
	var req SetMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.groups.SetMember(c.Request.Context(), callerFrom(c), c.Param("code"), c.Param("userId"), *req.Active); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respond(c *gin.Context, data interface{}, err error) {
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, data)
}

func bindError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
}

// bindOptionalJSON binds the body when one was sent
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(obj)
}

func bindReason(c *gin.Context) (int64, ReasonRequest, bool) {
	var req ReasonRequest
	draftID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return 0, req, false
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		bindError(c, err)
		return 0, req, false
	}
	return draftID, req, true
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", draft.ErrInvalidArgument, name)
	}
	return id, nil
}

func stepPath(c *gin.Context) (int64, int64, error) {
	draftID, err := pathID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	stepID, err := pathID(c, "stepId")
	if err != nil {
		return 0, 0, err
	}
	return draftID, stepID, nil
}
