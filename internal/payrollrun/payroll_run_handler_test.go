package payrollrun_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"orvit-payroll/internal/payrollrun"
	payrollrunerrors "orvit-payroll/internal/payrollrun/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Ok    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

func mustDecodeEnvelope(t *testing.T, body []byte) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	err := json.Unmarshal(body, &env)
	assert.NoError(t, err)
	return env
}

type fakeRunService struct {
	calculateFn    func(ctx context.Context, companyID, actorID string, req payrollrun.CalculateRunRequest) (payrollrun.RunSummaryResponse, error)
	getAllFn       func(ctx context.Context, companyID string, req payrollrun.GetRunsFilterRequest) ([]payrollrun.RunSummaryResponse, error)
	getByIDFn      func(ctx context.Context, companyID, id string) (payrollrun.RunSummaryResponse, error)
	getBreakdownFn func(ctx context.Context, companyID, id string) (payrollrun.RunBreakdownResponse, error)
	voidFn         func(ctx context.Context, companyID, actorID, id string, req payrollrun.VoidRunRequest) (payrollrun.RunSummaryResponse, error)
}

func (f *fakeRunService) Calculate(ctx context.Context, companyID, actorID string, req payrollrun.CalculateRunRequest) (payrollrun.RunSummaryResponse, error) {
	return f.calculateFn(ctx, companyID, actorID, req)
}

func (f *fakeRunService) GetAll(ctx context.Context, companyID string, req payrollrun.GetRunsFilterRequest) ([]payrollrun.RunSummaryResponse, error) {
	return f.getAllFn(ctx, companyID, req)
}

func (f *fakeRunService) GetByID(ctx context.Context, companyID, id string) (payrollrun.RunSummaryResponse, error) {
	return f.getByIDFn(ctx, companyID, id)
}

func (f *fakeRunService) GetBreakdown(ctx context.Context, companyID, id string) (payrollrun.RunBreakdownResponse, error) {
	return f.getBreakdownFn(ctx, companyID, id)
}

func (f *fakeRunService) Void(ctx context.Context, companyID, actorID, id string, req payrollrun.VoidRunRequest) (payrollrun.RunSummaryResponse, error) {
	return f.voidFn(ctx, companyID, actorID, id, req)
}

func TestRunHandler_Calculate(t *testing.T) {
	companyID := uuid.NewString()
	actorID := uuid.NewString()
	periodID := uuid.NewString()

	svc := &fakeRunService{
		calculateFn: func(_ context.Context, cid, aid string, req payrollrun.CalculateRunRequest) (payrollrun.RunSummaryResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, actorID, aid)
			assert.Equal(t, periodID, req.PeriodID)
			assert.Equal(t, payrollrun.RunTypeRegular, req.RunType)
			return payrollrun.RunSummaryResponse{
				ID:        uuid.NewString(),
				CompanyID: cid,
				PeriodID:  req.PeriodID,
				RunNumber: 1,
				Status:    payrollrun.StatusCalculated,
			}, nil
		},
	}

	h := payrollrun.NewHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := `{"period_id":"` + periodID + `","run_type":"REGULAR"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/payroll-runs/calculate", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("company_id", companyID)
	c.Set("user_id", actorID)

	h.Calculate(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.True(t, env.Ok)
}

func TestRunHandler_Calculate_PeriodClosed(t *testing.T) {
	svc := &fakeRunService{
		calculateFn: func(_ context.Context, _, _ string, _ payrollrun.CalculateRunRequest) (payrollrun.RunSummaryResponse, error) {
			return payrollrun.RunSummaryResponse{}, payrollrunerrors.ErrPeriodClosed
		},
	}

	h := payrollrun.NewHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := `{"period_id":"` + uuid.NewString() + `","run_type":"REGULAR"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/payroll-runs/calculate", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("company_id", uuid.NewString())
	c.Set("user_id", uuid.NewString())

	h.Calculate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.False(t, env.Ok)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)
}

func TestRunHandler_GetAll_Paginates(t *testing.T) {
	companyID := uuid.NewString()

	runs := make([]payrollrun.RunSummaryResponse, 15)
	for i := range runs {
		runs[i] = payrollrun.RunSummaryResponse{ID: uuid.NewString(), RunNumber: i + 1}
	}

	svc := &fakeRunService{
		getAllFn: func(_ context.Context, cid string, _ payrollrun.GetRunsFilterRequest) ([]payrollrun.RunSummaryResponse, error) {
			assert.Equal(t, companyID, cid)
			return runs, nil
		},
	}

	h := payrollrun.NewHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/payroll-runs?page=2&page_size=10", nil)
	c.Set("company_id", companyID)

	h.GetAll(c)

	assert.Equal(t, http.StatusOK, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.True(t, env.Ok)

	var page []payrollrun.RunSummaryResponse
	assert.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page, 5)
	assert.Equal(t, 11, page[0].RunNumber)
}

func TestRunHandler_GetById_NotFound(t *testing.T) {
	svc := &fakeRunService{
		getByIDFn: func(_ context.Context, _, _ string) (payrollrun.RunSummaryResponse, error) {
			return payrollrun.RunSummaryResponse{}, payrollrunerrors.ErrRunNotFound
		},
	}

	h := payrollrun.NewHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/payroll-runs/123", nil)
	c.Params = []gin.Param{{Key: "id", Value: "123"}}
	c.Set("company_id", uuid.NewString())

	h.GetById(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.False(t, env.Ok)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRunHandler_GetBreakdown(t *testing.T) {
	companyID := uuid.NewString()
	runID := uuid.NewString()

	svc := &fakeRunService{
		getBreakdownFn: func(_ context.Context, cid, id string) (payrollrun.RunBreakdownResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, runID, id)
			return payrollrun.RunBreakdownResponse{
				Run: payrollrun.RunSummaryResponse{ID: runID, Status: payrollrun.StatusCalculated},
			}, nil
		},
	}

	h := payrollrun.NewHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/payroll-runs/"+runID+"/breakdown", nil)
	c.Params = []gin.Param{{Key: "id", Value: runID}}
	c.Set("company_id", companyID)

	h.GetBreakdown(c)

	assert.Equal(t, http.StatusOK, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.True(t, env.Ok)
}

func TestRunHandler_Void(t *testing.T) {
	companyID := uuid.NewString()
	actorID := uuid.NewString()
	runID := uuid.NewString()

	svc := &fakeRunService{
		voidFn: func(_ context.Context, cid, aid, id string, req payrollrun.VoidRunRequest) (payrollrun.RunSummaryResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, actorID, aid)
			assert.Equal(t, runID, id)
			assert.Equal(t, "duplicate run", req.Reason)
			return payrollrun.RunSummaryResponse{ID: id, Status: payrollrun.StatusVoided}, nil
		},
	}

	h := payrollrun.NewHandler(svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/payroll-runs/"+runID+"/void", strings.NewReader(`{"reason":"duplicate run"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = []gin.Param{{Key: "id", Value: runID}}
	c.Set("company_id", companyID)
	c.Set("user_id", actorID)

	h.Void(c)

	assert.Equal(t, http.StatusOK, w.Code)
	env := mustDecodeEnvelope(t, w.Body.Bytes())
	assert.True(t, env.Ok)
}
