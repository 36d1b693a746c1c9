package handler

import (
	"net/http"

	"lead_pipeline_backend/internal/access"
	"lead_pipeline_backend/internal/leads/assignment"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/management"
	"lead_pipeline_backend/internal/leads/pipeline"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	mgmt       *management.Service
	pipeline   *pipeline.Service
	assignment *assignment.Service
	val        *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(mgmt *management.Service, pipe *pipeline.Service, assign *assignment.Service, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, pipeline: pipe, assignment: assign, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/pool/route", h.RoutePool)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/metadata", h.UpdateMetadata)
	rg.POST("/:id/transition", h.Transition)
	rg.POST("/:id/assign", h.Assign)
	rg.GET("/:id/audit", h.ListAudit)
	rg.GET("/:id/contacts", h.ListContacts)
	rg.POST("/:id/contacts", h.AddContact)
	rg.DELETE("/:id/contacts/:contactId", h.RemoveContact)
	rg.PUT("/:id/contacts/:contactId/primary", h.SetPrimaryContact)
}

// RegisterTeamRoutes mounts the team view.
func (h *Handler) RegisterTeamRoutes(rg *gin.RouterGroup) {
	rg.GET("/managers", h.ListManagers)
}

// RegisterMeRoutes mounts caller-centric routes.
func (h *Handler) RegisterMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/capabilities", h.Capabilities)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	lead, err := h.mgmt.GetByID(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UpdateMetadata(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req transport.UpdateMetadataRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.UpdateMetadata(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Transition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req transport.TransitionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	expected, known := domain.ParseStatus(req.ExpectedStatus)
	if !known {
		httpkit.HandleError(c, apperr.Validation("unknown expected status"))
		return
	}

	lead, err := h.pipeline.Transition(c.Request.Context(), id, req.TargetStatus, actor, expected)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) Assign(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req transport.AssignLeadRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.assignment.Assign(c.Request.Context(), id, actor, req.ManagerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, management.ToLeadResponse(lead))
}

func (h *Handler) RoutePool(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.RoutePoolRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	summary, err := h.assignment.RoutePool(c.Request.Context(), actor, domain.Tier(req.Tier))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RouteSummaryResponse{
		Scanned:  summary.Scanned,
		Assigned: summary.Assigned,
		Skipped:  summary.Skipped,
		Failed:   summary.Failed,
	})
}

func (h *Handler) ListAudit(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.mgmt.ListAudit(c.Request.Context(), actor, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": entries})
}

func (h *Handler) ListManagers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListManagersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if !h.validate(c, req) {
		return
	}

	managers, err := h.mgmt.ListManagers(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": managers})
}

func (h *Handler) Capabilities(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	httpkit.OK(c, transport.CapabilitiesResponse{
		Role:         string(actor.Role),
		Capabilities: access.Resolve(actor.Role),
	})
}

// actorFrom builds the acting user from the authenticated identity.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return domain.Actor{}, false
	}
	role, _ := access.ParseRole(id.Role())
	return domain.Actor{ID: id.UserID(), OrganizationID: id.TenantID(), Role: role}, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}
