package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timeplan-api/internal/models"
	"github.com/noah-isme/timeplan-api/internal/planner"
	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

type fakePlannerService struct {
	lastRequest planner.GenerateRequest
	result      *planner.GenerateResult
	err         error
}

func (f *fakePlannerService) Generate(_ context.Context, req planner.GenerateRequest) (*planner.GenerateResult, error) {
	f.lastRequest = req
	return f.result, f.err
}

func (f *fakePlannerService) Analyze(_ context.Context, req planner.GenerateRequest) (*planner.AnalyzeResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &planner.AnalyzeResult{RequirementCount: 1}, nil
}

func (f *fakePlannerService) SavePreview(context.Context, string, string) (*planner.GenerateResult, error) {
	return f.result, f.err
}

func (f *fakePlannerService) Defaults() planner.Params {
	return planner.Params{
		MultiStart:      true,
		MaxAttempts:     10,
		Patience:        3,
		TimePerAttempt:  5 * time.Second,
		BaseSeed:        42,
		SeedStep:        17,
		SearchWorkers:   8,
		RandomizeSearch: true,
		UseValueHints:   true,
	}
}

type fakePlanReader struct{}

func (fakePlanReader) GetByID(context.Context, string, string) (*models.Plan, error) {
	return &models.Plan{ID: "p1"}, nil
}
func (fakePlanReader) ListForPeriod(context.Context, string, string) ([]models.Plan, error) {
	return []models.Plan{{ID: "p1"}}, nil
}
func (fakePlanReader) GetSlots(context.Context, string) ([]models.PlanSlot, error) {
	return []models.PlanSlot{{ID: "sl1"}}, nil
}
func (fakePlanReader) Delete(context.Context, string, string) error { return nil }

func newTestRouter(svc *fakePlannerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPlanGeneratorHandler(svc, fakePlanReader{})
	r.POST("/plans/generate", h.Generate)
	r.POST("/plans/analyze", h.Analyze)
	r.GET("/plans/:id", h.Get)
	r.DELETE("/plans/:id", h.Delete)
	return r
}

func solvedResult() *planner.GenerateResult {
	return &planner.GenerateResult{
		PlanID:           "p1",
		PlanningPeriodID: "pp1",
		Status:           "OPTIMAL",
		Score:            1000,
		Slots:            []planner.SlotOut{{ClassID: "c1", Day: "Mo", Period: 1, SubjectID: "s1", TeacherID: "t1"}},
		RulesSnapshot:    models.JSONMap{"keine_klassenkonflikte": true},
		RuleKeysActive:   []string{"keine_klassenkonflikte"},
	}
}

func TestGenerateRequiresTenantScope(t *testing.T) {
	r := newTestRouter(&fakePlannerService{result: solvedResult()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans/generate", bytes.NewBufferString(`{"name":"x"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateRejectsMissingName(t *testing.T) {
	r := newTestRouter(&fakePlannerService{result: solvedResult()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans/generate?account_id=acc1&planning_period_id=pp1", bytes.NewBufferString(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateHappyPath(t *testing.T) {
	svc := &fakePlannerService{result: solvedResult()}
	r := newTestRouter(svc)

	body := `{"name":"Herbstplan","dry_run":false,"params":{"max_attempts":5,"time_per_attempt":2.5}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans/generate?account_id=acc1&planning_period_id=pp1", bytes.NewBufferString(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "acc1", svc.lastRequest.AccountID)
	assert.Equal(t, "pp1", svc.lastRequest.PlanningPeriodID)
	assert.Equal(t, "Herbstplan", svc.lastRequest.Name)
	assert.Equal(t, 5, svc.lastRequest.Params.MaxAttempts)
	assert.Equal(t, 2500*time.Millisecond, svc.lastRequest.Params.TimePerAttempt)
	// Absent params fall back to the configured defaults.
	assert.Equal(t, int64(42), svc.lastRequest.Params.BaseSeed)
	assert.True(t, svc.lastRequest.Params.UseValueHints)

	var envelope struct {
		Data struct {
			PlanID *string `json:"plan_id"`
			Status string  `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.PlanID)
	assert.Equal(t, "p1", *envelope.Data.PlanID)
	assert.Equal(t, "OPTIMAL", envelope.Data.Status)
}

func TestGenerateDryRunNullPlanID(t *testing.T) {
	result := solvedResult()
	result.PlanID = ""
	result.PreviewID = "prev-1"
	svc := &fakePlannerService{result: result}
	r := newTestRouter(svc)

	body := `{"name":"Probe","dry_run":true}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans/generate?account_id=acc1&planning_period_id=pp1", bytes.NewBufferString(body))
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data struct {
			PlanID    *string `json:"plan_id"`
			PreviewID *string `json:"preview_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Data.PlanID)
	require.NotNil(t, envelope.Data.PreviewID)
	assert.Equal(t, "prev-1", *envelope.Data.PreviewID)
}

func TestGenerateMapsSolverInfeasibleTo422(t *testing.T) {
	svc := &fakePlannerService{err: appErrors.ErrSolverInfeasible}
	r := newTestRouter(svc)

	body := `{"name":"x"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans/generate?account_id=acc1&planning_period_id=pp1", bytes.NewBufferString(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAnalyzeHappyPath(t *testing.T) {
	svc := &fakePlannerService{}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans/analyze?account_id=acc1&planning_period_id=pp1", bytes.NewBufferString(`{"name":"x"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetPlanRequiresAccount(t *testing.T) {
	r := newTestRouter(&fakePlannerService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/plans/p1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeletePlan(t *testing.T) {
	r := newTestRouter(&fakePlannerService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/plans/p1?account_id=acc1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
