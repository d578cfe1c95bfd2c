package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/compare"
	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/scoring"
	"github.com/corates/corates/internal/store"
)

func setupTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	srv := NewServer(s, nil)
	return srv, s
}

// seedStudy creates a project and study directly in the store.
func seedStudy(t *testing.T, s store.Store) *models.Study {
	t.Helper()
	ctx := context.Background()

	p := &models.Project{Name: "review-" + t.Name()}
	require.NoError(t, s.CreateProject(ctx, p))

	study := &models.Study{
		ProjectID: p.ID,
		Title:     "Statins for primary prevention",
		Design:    "randomized trial",
	}
	require.NoError(t, s.CreateStudy(ctx, study))
	return study
}

// seedChecklist creates a stored checklist for the study.
func seedChecklist(t *testing.T, s store.Store, studyID string, instrument models.InstrumentType, reviewer string) *models.Checklist {
	t.Helper()
	c, err := catalog.NewChecklist(instrument, models.ChecklistMeta{
		StudyID:  studyID,
		Reviewer: reviewer,
	})
	require.NoError(t, err)
	require.NoError(t, s.CreateChecklist(context.Background(), c))
	return c
}

// answerAllNo fills every non-optional signalling question with "no".
func answerAllNo(t *testing.T, c *models.Checklist) {
	t.Helper()
	def, err := catalog.Definition(c.Instrument)
	require.NoError(t, err)
	form := c.DomainForm()
	require.NotNil(t, form)
	for _, domDef := range def.Domains {
		for _, q := range domDef.Questions {
			if !q.Optional {
				form.Domains[domDef.ID].Answers[q.ID] = models.SignalAnswer{Response: models.ResponseNo}
			}
		}
	}
}

func TestListProjects_Empty(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var projects []*models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	assert.Nil(t, projects)
}

func TestProjectCRUD_API(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	// Create
	body := `{"Name":"copd-review","Description":"rehab reviews"}`
	req := httptest.NewRequest("POST", "/api/v1/projects", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "copd-review", created.Name)
	assert.NotEmpty(t, created.ID)

	// Get
	req = httptest.NewRequest("GET", "/api/v1/projects/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Update (patch semantics)
	req = httptest.NewRequest("PUT", "/api/v1/projects/"+created.ID, bytes.NewBufferString(`{"Description":"updated"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "copd-review", updated.Name, "name should survive a partial patch")
	assert.Equal(t, "updated", updated.Description)

	// Delete
	req = httptest.NewRequest("DELETE", "/api/v1/projects/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCreateProject_MissingName(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest("POST", "/api/v1/projects", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudyCRUD_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	ctx := context.Background()

	p := &models.Project{Name: "proj"}
	require.NoError(t, s.CreateProject(ctx, p))

	// Create study via API
	body := `{"Title":"Metformin in prediabetes","Year":2019,"Design":"randomized trial"}`
	req := httptest.NewRequest("POST", "/api/v1/projects/"+p.ID+"/studies", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.Study
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, p.ID, created.ProjectID)
	assert.Equal(t, 2019, created.Year)

	// List via project route
	req = httptest.NewRequest("GET", "/api/v1/projects/"+p.ID+"/studies", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var studies []*models.Study
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &studies))
	assert.Len(t, studies, 1)

	// Patch
	req = httptest.NewRequest("PUT", "/api/v1/studies/"+created.ID, bytes.NewBufferString(`{"SecondReviewer":"bob"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Study
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "bob", updated.SecondReviewer)
	assert.Equal(t, "Metformin in prediabetes", updated.Title)

	// Delete
	req = httptest.NewRequest("DELETE", "/api/v1/studies/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestExtractStudy_NoLLM(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)

	req := httptest.NewRequest("POST", "/api/v1/studies/"+study.ID+"/extract",
		bytes.NewBufferString(`{"text":"Abstract..."}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestChecklistLifecycle_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)

	// Create
	body := `{"instrument":"rob2","reviewer":"alice"}`
	req := httptest.NewRequest("POST", "/api/v1/studies/"+study.ID+"/checklists", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.Checklist
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.InstrumentRob2, created.Instrument)
	require.NotNil(t, created.Rob2)
	assert.Len(t, created.Rob2.Domains, 5)

	// Answer a question and update
	created.Rob2.Domains["randomization"].Answers["1.1"] = models.SignalAnswer{Response: models.ResponseYes}
	created.Status = models.ChecklistStatusInProgress
	buf, err := json.Marshal(created)
	require.NoError(t, err)

	req = httptest.NewRequest("PUT", "/api/v1/checklists/"+created.ID, bytes.NewReader(buf))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Get reflects the update
	req = httptest.NewRequest("GET", "/api/v1/checklists/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Checklist
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.ChecklistStatusInProgress, got.Status)
	assert.Equal(t, models.ResponseYes, got.Rob2.Domains["randomization"].Answers["1.1"].Response)
}

func TestCreateChecklist_UnknownInstrument(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)

	req := httptest.NewRequest("POST", "/api/v1/studies/"+study.ID+"/checklists",
		bytes.NewBufferString(`{"instrument":"newcastle_ottawa"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateChecklist_InstrumentImmutable(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)
	c := seedChecklist(t, s, study.ID, models.InstrumentRob2, "alice")

	body := fmt.Sprintf(`{"Instrument":"amstar2","ID":%q}`, c.ID)
	req := httptest.NewRequest("PUT", "/api/v1/checklists/"+c.ID, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateChecklist_RejectsInvalidResponse(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)
	c := seedChecklist(t, s, study.ID, models.InstrumentRob2, "alice")

	// Out-of-vocabulary answers and ROBINS-I-only answers on a RoB 2 form
	// must not reach storage.
	for _, response := range []models.Response{"banana", models.ResponseNotApplicable} {
		c.Rob2.Domains["randomization"].Answers["1.1"] = models.SignalAnswer{Response: response}
		buf, err := json.Marshal(c)
		require.NoError(t, err)

		req := httptest.NewRequest("PUT", "/api/v1/checklists/"+c.ID, bytes.NewReader(buf))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "response %q", response)
	}

	got, err := s.GetChecklist(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseUnanswered, got.Rob2.Domains["randomization"].Answers["1.1"].Response)
}

func TestScoreChecklist_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)

	c := seedChecklist(t, s, study.ID, models.InstrumentRob2, "alice")
	answerAllNo(t, c)
	// 1.2=no, 1.3=no keeps randomization out of the low path; the point here
	// is only that scoring runs end to end over a stored checklist.
	require.NoError(t, s.UpdateChecklist(context.Background(), c))

	req := httptest.NewRequest("GET", "/api/v1/checklists/"+c.ID+"/score", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var result scoring.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.InstrumentRob2, result.Instrument)
	assert.True(t, result.Complete)
	assert.Len(t, result.Domains, 5)
	assert.NotEqual(t, models.RiskUnset, result.Overall.Judgement)
}

func TestCompare_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)
	ctx := context.Background()

	a := seedChecklist(t, s, study.ID, models.InstrumentRob2, "alice")
	answerAllNo(t, a)
	require.NoError(t, s.UpdateChecklist(ctx, a))

	b := seedChecklist(t, s, study.ID, models.InstrumentRob2, "bob")
	answerAllNo(t, b)
	b.Rob2.Domains["missing_data"].Answers["3.1"] = models.SignalAnswer{Response: models.ResponseYes}
	require.NoError(t, s.UpdateChecklist(ctx, b))

	body := fmt.Sprintf(`{"checklist_a":%q,"checklist_b":%q}`, a.ID, b.ID)
	req := httptest.NewRequest("POST", "/api/v1/compare", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var report compare.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 4, report.Agree)
	assert.Equal(t, 1, report.Discrepant)
	assert.Equal(t, []string{"missing_data"}, report.DiscrepantKeys())
}

func TestCompare_InstrumentMismatch(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)

	a := seedChecklist(t, s, study.ID, models.InstrumentRob2, "alice")
	b := seedChecklist(t, s, study.ID, models.InstrumentAmstar2, "bob")

	body := fmt.Sprintf(`{"checklist_a":%q,"checklist_b":%q}`, a.ID, b.ID)
	req := httptest.NewRequest("POST", "/api/v1/compare", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconcile_API(t *testing.T) {
	srv, s := setupTestServer(t)
	router := srv.Router()
	study := seedStudy(t, s)
	ctx := context.Background()

	a := seedChecklist(t, s, study.ID, models.InstrumentRob2, "alice")
	answerAllNo(t, a)
	require.NoError(t, s.UpdateChecklist(ctx, a))

	b := seedChecklist(t, s, study.ID, models.InstrumentRob2, "bob")
	answerAllNo(t, b)
	b.Rob2.Domains["missing_data"].Answers["3.1"] = models.SignalAnswer{Response: models.ResponseYes}
	require.NoError(t, s.UpdateChecklist(ctx, b))

	// Missing resolution first: all-or-nothing means 409
	body := fmt.Sprintf(`{"checklist_a":%q,"checklist_b":%q,"reviewer":"alice+bob"}`, a.ID, b.ID)
	req := httptest.NewRequest("POST", "/api/v1/reconcile", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	// With the resolution supplied
	body = fmt.Sprintf(`{
		"checklist_a": %q,
		"checklist_b": %q,
		"reviewer": "alice+bob",
		"resolutions": {
			"missing_data": {
				"responses": {"3.1": "yes"},
				"comment": "complete outcome data confirmed in table 2"
			}
		}
	}`, a.ID, b.ID)
	req = httptest.NewRequest("POST", "/api/v1/reconcile", bytes.NewBufferString(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var merged models.Checklist
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &merged))
	assert.Equal(t, []string{a.ID, b.ID}, merged.SourceChecklists)
	assert.Equal(t, models.ChecklistStatusInProgress, merged.Status)
	assert.Equal(t, models.ResponseYes, merged.Rob2.Domains["missing_data"].Answers["3.1"].Response)

	// Sources were retired
	gotA, err := s.GetChecklist(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChecklistStatusSuperseded, gotA.Status)
	gotB, err := s.GetChecklist(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChecklistStatusSuperseded, gotB.Status)
}

func TestInstruments_API(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest("GET", "/api/v1/instruments", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var defs []*catalog.InstrumentDef
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &defs))
	require.Len(t, defs, 3)

	req = httptest.NewRequest("GET", "/api/v1/instruments/amstar2", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/instruments/nope", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	req := httptest.NewRequest("OPTIONS", "/api/v1/projects", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
