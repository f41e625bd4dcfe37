package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/michezo/core/plan"
	"github.com/trezcool/michezo/core/run"
	"github.com/trezcool/michezo/core/session"
	"github.com/trezcool/michezo/services/email"
	"github.com/trezcool/michezo/storage/database/dummy"
)

func setupRunAPI(t *testing.T) http.Handler {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	planRepo := dummydb.NewPlanRepository(db)
	runRepo := dummydb.NewRunRepository(db)
	svc := run.NewService(planRepo, runRepo, testLogger{}, emailsvc.NewConsoleService())

	app, v1, jwt := initApp()
	RegisterRunAPI(v1, jwt, svc)

	planRepo.SetPlan(plan.Plan{ID: "plan1", Name: "Scout Afternoon"})
	planRepo.SetVersion(
		plan.PlanVersion{ID: "v1", PlanID: "plan1", Number: 1},
		[]plan.Block{
			{
				ID:       "blk1",
				Position: 1,
				Type:     plan.BlockTypeGame,
				GameSnapshot: &plan.GameSnapshot{
					Title: "Capture The Flag",
					Instructions: []plan.GameInstruction{
						{Title: "Explain the rules", DurationMinutes: 5},
						{Title: "Play", DurationMinutes: 20},
					},
				},
			},
			{ID: "blk2", Position: 2, Type: plan.BlockTypePause, DurationMinutes: 10},
		},
	)

	planRepo.SetPlan(plan.Plan{ID: "plan2", Name: "Unpublished Evening"})
	planRepo.SetDraftBlocks("plan2", []plan.Block{
		{ID: "blk3", Position: 1, Type: plan.BlockTypeCustom, Title: "Campfire", DurationMinutes: 30},
	})

	planRepo.SetPlan(plan.Plan{ID: "plan3", Name: "Empty"})
	return app
}

func TestRunStart(t *testing.T) {
	app := setupRunAPI(t)
	token := getToken(t, session.Participant{ID: "usr1", DisplayName: "Asha"})

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{
			method:   http.MethodPost,
			path:     "/v1/runs/start",
			body:     marshallObj(t, StartRunRequest{PlanID: "plan1"}),
			wantCode: http.StatusUnauthorized,
			wantData: errMissingToken,
		}
		req, rec := newRequest(tt.method, tt.path, tt.body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("published plan starts a persisted run", func(t *testing.T) {
		body := marshallObj(t, StartRunRequest{PlanID: "plan1"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/runs/start", token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var resp StartRunResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		assert.Equal(t, run.KindPersisted, resp.Run.Kind)
		assert.Equal(t, run.StatusInProgress, resp.Run.Status)
		assert.Equal(t, "plan1", resp.Run.PlanID)
		assert.Equal(t, "v1", resp.Run.PlanVersionID)
		assert.Equal(t, "usr1", resp.Run.StartedBy)
		assert.Len(t, resp.Run.Steps, 3)
		assert.Equal(t, 35, resp.Run.TotalDurationMinutes)

		// persisted runs are retrievable
		req, rec = newAuthRequest(http.MethodGet, "/v1/runs/"+resp.Run.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unpublished plan starts a draft run", func(t *testing.T) {
		body := marshallObj(t, StartRunRequest{PlanID: "plan2"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/runs/start", token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v, want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var resp StartRunResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		assert.Equal(t, run.KindDraft, resp.Run.Kind)
		assert.Empty(t, resp.Run.PlanVersionID)
		assert.Len(t, resp.Run.Steps, 1)

		// draft runs are ephemeral
		req, rec = newAuthRequest(http.MethodGet, "/v1/runs/"+resp.Run.ID, token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []httpTest{
			{
				name:     "unknown plan",
				body:     marshallObj(t, StartRunRequest{PlanID: "ghost"}),
				wantCode: http.StatusNotFound,
				wantData: errEnvelope("NOT_FOUND", "plan not found"),
			},
			{
				name:     "plan_id required",
				body:     marshallObj(t, StartRunRequest{}),
				wantCode: http.StatusBadRequest,
				wantData: errEnvelope("VALIDATION_ERROR", "invalid input", map[string]string{"plan_id": "this field is required"}),
			},
			{
				name:     "empty plan has no playable content",
				body:     marshallObj(t, StartRunRequest{PlanID: "plan3"}),
				wantCode: http.StatusBadRequest,
				wantData: errEnvelope("VALIDATION_ERROR", "plan has no playable content"),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodPost, "/v1/runs/start", token, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})
}

func TestRunRetrieve(t *testing.T) {
	app := setupRunAPI(t)
	token := getToken(t, session.Participant{ID: "usr1", DisplayName: "Asha"})

	tt := httpTest{
		name:     "unknown run",
		wantCode: http.StatusNotFound,
		wantData: errEnvelope("NOT_FOUND", "run not found"),
	}
	req, rec := newAuthRequest(http.MethodGet, "/v1/runs/ghost", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
