package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timeplan-api/internal/dto"
	"github.com/noah-isme/timeplan-api/internal/models"
	"github.com/noah-isme/timeplan-api/internal/planner"
	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
	"github.com/noah-isme/timeplan-api/pkg/response"
)

type planGenerator interface {
	Generate(ctx context.Context, req planner.GenerateRequest) (*planner.GenerateResult, error)
	Analyze(ctx context.Context, req planner.GenerateRequest) (*planner.AnalyzeResult, error)
	SavePreview(ctx context.Context, accountID, previewID string) (*planner.GenerateResult, error)
	Defaults() planner.Params
}

type planReader interface {
	GetByID(ctx context.Context, accountID, id string) (*models.Plan, error)
	ListForPeriod(ctx context.Context, accountID, planningPeriodID string) ([]models.Plan, error)
	GetSlots(ctx context.Context, planID string) ([]models.PlanSlot, error)
	Delete(ctx context.Context, accountID, id string) error
}

// PlanGeneratorHandler exposes the timetable generation endpoints.
type PlanGeneratorHandler struct {
	service planGenerator
	plans   planReader
}

// NewPlanGeneratorHandler constructs the handler.
func NewPlanGeneratorHandler(svc planGenerator, plans planReader) *PlanGeneratorHandler {
	return &PlanGeneratorHandler{service: svc, plans: plans}
}

// tenantScope reads the account_id and planning_period_id query params every
// planner endpoint requires.
func tenantScope(c *gin.Context) (accountID, planningPeriodID string, ok bool) {
	accountID = c.Query("account_id")
	planningPeriodID = c.Query("planning_period_id")
	if accountID == "" || planningPeriodID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account_id und planning_period_id sind erforderlich"))
		return "", "", false
	}
	return accountID, planningPeriodID, true
}

func (h *PlanGeneratorHandler) buildRequest(req dto.GeneratePlanRequest, accountID, planningPeriodID string) planner.GenerateRequest {
	comment := ""
	if req.Comment != nil {
		comment = *req.Comment
	}
	return planner.GenerateRequest{
		AccountID:        accountID,
		PlanningPeriodID: planningPeriodID,
		Name:             req.Name,
		VersionID:        req.VersionID,
		RuleProfileID:    req.RuleProfileID,
		OverrideRules:    req.OverrideRules,
		Comment:          comment,
		DryRun:           req.DryRun,
		Params:           req.ToPlannerParams(h.service.Defaults()),
	}
}

// Generate runs the full planner pipeline for one planning period and
// returns the generated plan, persisted unless dry_run is set.
func (h *PlanGeneratorHandler) Generate(c *gin.Context) {
	accountID, planningPeriodID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "ungültige Generierungsanfrage"))
		return
	}

	result, err := h.service.Generate(c.Request.Context(), h.buildRequest(req, accountID, planningPeriodID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewGeneratePlanResponse(result), nil)
}

// Analyze runs the load/parse/resolve prefix of the pipeline and reports a
// capacity summary without invoking the solver.
func (h *PlanGeneratorHandler) Analyze(c *gin.Context) {
	accountID, planningPeriodID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "ungültige Analyseanfrage"))
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), h.buildRequest(req, accountID, planningPeriodID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SavePreview persists a previously generated dry-run proposal.
func (h *PlanGeneratorHandler) SavePreview(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account_id ist erforderlich"))
		return
	}

	result, err := h.service.SavePreview(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewGeneratePlanResponse(result))
}

// List returns an account's plans for a planning period.
func (h *PlanGeneratorHandler) List(c *gin.Context) {
	accountID, planningPeriodID, ok := tenantScope(c)
	if !ok {
		return
	}
	plans, err := h.plans.ListForPeriod(c.Request.Context(), accountID, planningPeriodID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Get returns one plan header.
func (h *PlanGeneratorHandler) Get(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account_id ist erforderlich"))
		return
	}
	plan, err := h.plans.GetByID(c.Request.Context(), accountID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Slots returns the slots of one plan.
func (h *PlanGeneratorHandler) Slots(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account_id ist erforderlich"))
		return
	}
	if _, err := h.plans.GetByID(c.Request.Context(), accountID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	slots, err := h.plans.GetSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Delete removes a plan and its slots.
func (h *PlanGeneratorHandler) Delete(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account_id ist erforderlich"))
		return
	}
	if err := h.plans.Delete(c.Request.Context(), accountID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
