package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/compare"
	"github.com/corates/corates/internal/llm"
	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/scoring"
	"github.com/corates/corates/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store store.Store
	llm   *llm.Client
}

// NewServer creates a new API server.
// The llmClient may be nil if no API key is configured.
func NewServer(s store.Store, llmClient *llm.Client) *Server {
	return &Server{
		store: s,
		llm:   llmClient,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	mux.HandleFunc("POST /api/v1/projects", s.createProject)
	mux.HandleFunc("GET /api/v1/projects/{id}", s.getProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}", s.updateProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.deleteProject)

	mux.HandleFunc("GET /api/v1/projects/{id}/studies", s.listProjectStudies)
	mux.HandleFunc("POST /api/v1/projects/{id}/studies", s.createProjectStudy)

	mux.HandleFunc("GET /api/v1/studies", s.listStudies)
	mux.HandleFunc("GET /api/v1/studies/{id}", s.getStudy)
	mux.HandleFunc("PUT /api/v1/studies/{id}", s.updateStudy)
	mux.HandleFunc("DELETE /api/v1/studies/{id}", s.deleteStudy)
	mux.HandleFunc("POST /api/v1/studies/{id}/extract", s.extractStudy)

	mux.HandleFunc("GET /api/v1/studies/{id}/checklists", s.listStudyChecklists)
	mux.HandleFunc("POST /api/v1/studies/{id}/checklists", s.createStudyChecklist)

	mux.HandleFunc("GET /api/v1/checklists", s.listChecklists)
	mux.HandleFunc("GET /api/v1/checklists/{id}", s.getChecklist)
	mux.HandleFunc("PUT /api/v1/checklists/{id}", s.updateChecklist)
	mux.HandleFunc("GET /api/v1/checklists/{id}/score", s.scoreChecklist)

	mux.HandleFunc("POST /api/v1/compare", s.compareChecklists)
	mux.HandleFunc("POST /api/v1/compare/notes", s.discrepancyNotes)
	mux.HandleFunc("POST /api/v1/reconcile", s.reconcileChecklists)

	mux.HandleFunc("GET /api/v1/instruments", s.listInstruments)
	mux.HandleFunc("GET /api/v1/instruments/{id}", s.getInstrument)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// patchString applies a string value from a JSON patch map to the target if the key is present and non-empty.
func patchString(patch map[string]any, key string, target *string) {
	if v, ok := patch[key]; ok {
		if str, ok := v.(string); ok && str != "" {
			*target = str
		}
	}
}

// --- Projects ---

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	project, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var p models.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := s.store.CreateProject(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Selectively merge only keys present in the patch with non-empty values.
	// Empty strings are treated as "not provided" to avoid wiping existing data.
	patchString(patch, "Name", &existing.Name)
	patchString(patch, "Description", &existing.Description)

	if err := s.store.UpdateProject(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Studies ---

func (s *Server) listStudies(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	studies, err := s.store.ListStudies(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, studies)
}

func (s *Server) listProjectStudies(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	studies, err := s.store.ListStudies(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, studies)
}

func (s *Server) createProjectStudy(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	var study models.Study
	if err := json.NewDecoder(r.Body).Decode(&study); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if study.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	study.ProjectID = projectID
	if err := s.store.CreateStudy(r.Context(), &study); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, study)
}

func (s *Server) getStudy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	study, err := s.store.GetStudy(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, study)
}

func (s *Server) updateStudy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.GetStudy(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	patchString(patch, "Title", &existing.Title)
	patchString(patch, "Authors", &existing.Authors)
	patchString(patch, "Design", &existing.Design)
	patchString(patch, "DOI", &existing.DOI)
	patchString(patch, "FirstReviewer", &existing.FirstReviewer)
	patchString(patch, "SecondReviewer", &existing.SecondReviewer)
	if v, ok := patch["Year"]; ok {
		if year, ok := v.(float64); ok && year > 0 {
			existing.Year = int(year)
		}
	}

	if err := s.store.UpdateStudy(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteStudy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteStudy(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) extractStudy(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		writeError(w, http.StatusServiceUnavailable, "LLM not configured (set ANTHROPIC_API_KEY)")
		return
	}

	id := r.PathValue("id")
	study, err := s.store.GetStudy(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	extracted, err := s.llm.ExtractStudy(r.Context(), req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("LLM extraction failed: %v", err))
		return
	}

	// Fill only fields the reviewer has not already recorded.
	if study.Title == "" {
		study.Title = extracted.Title
	}
	if study.Authors == "" {
		study.Authors = extracted.Authors
	}
	if study.Year == 0 {
		study.Year = extracted.Year
	}
	if study.Design == "" {
		study.Design = extracted.Design
	}
	if study.DOI == "" {
		study.DOI = extracted.DOI
	}

	if err := s.store.UpdateStudy(r.Context(), study); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"study":     study,
		"extracted": extracted,
	})
}

// --- Checklists ---

func (s *Server) listChecklists(w http.ResponseWriter, r *http.Request) {
	filter := store.ChecklistListFilter{
		ProjectID:  r.URL.Query().Get("project_id"),
		StudyID:    r.URL.Query().Get("study_id"),
		Instrument: models.InstrumentType(r.URL.Query().Get("instrument")),
		Status:     models.ChecklistStatus(r.URL.Query().Get("status")),
		Reviewer:   r.URL.Query().Get("reviewer"),
	}
	checklists, err := s.store.ListChecklists(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checklists)
}

func (s *Server) listStudyChecklists(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")
	checklists, err := s.store.ListChecklists(r.Context(), store.ChecklistListFilter{StudyID: studyID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checklists)
}

// CreateChecklistRequest is the JSON body for POST /api/v1/studies/{id}/checklists.
type CreateChecklistRequest struct {
	Instrument string `json:"instrument"`
	Name       string `json:"name"`
	Reviewer   string `json:"reviewer"`
	AssignedTo string `json:"assigned_to"`
}

func (s *Server) createStudyChecklist(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")

	if _, err := s.store.GetStudy(r.Context(), studyID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req CreateChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	c, err := catalog.NewChecklist(models.InstrumentType(req.Instrument), models.ChecklistMeta{
		StudyID:    studyID,
		Name:       req.Name,
		Reviewer:   req.Reviewer,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownInstrument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.store.CreateChecklist(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getChecklist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := s.store.GetChecklist(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) updateChecklist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.GetChecklist(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var c models.Checklist
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// The instrument is fixed at creation. Answers and metadata may change,
	// the form shape may not.
	if c.Instrument != "" && c.Instrument != existing.Instrument {
		writeError(w, http.StatusBadRequest, "instrument cannot be changed")
		return
	}
	c.ID = existing.ID
	c.StudyID = existing.StudyID
	c.Instrument = existing.Instrument
	c.SourceChecklists = existing.SourceChecklists
	c.CreatedAt = existing.CreatedAt
	if c.Status == "" {
		c.Status = existing.Status
	}
	if c.DomainForm() == nil && c.Amstar == nil {
		writeError(w, http.StatusBadRequest, "checklist form is required")
		return
	}
	if err := c.ValidateAnswers(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateChecklist(r.Context(), &c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) scoreChecklist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, err := s.store.GetChecklist(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := scoring.Score(c)
	if err != nil {
		if errors.Is(err, scoring.ErrMalformed) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Compare & Reconcile ---

// CompareRequest is the JSON body for POST /api/v1/compare.
type CompareRequest struct {
	ChecklistA string `json:"checklist_a"`
	ChecklistB string `json:"checklist_b"`
}

func (s *Server) loadPair(w http.ResponseWriter, r *http.Request, aID, bID string) (*models.Checklist, *models.Checklist, bool) {
	if aID == "" || bID == "" {
		writeError(w, http.StatusBadRequest, "checklist_a and checklist_b are required")
		return nil, nil, false
	}
	a, err := s.store.GetChecklist(r.Context(), aID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("checklist %s not found", aID))
		return nil, nil, false
	}
	b, err := s.store.GetChecklist(r.Context(), bID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("checklist %s not found", bID))
		return nil, nil, false
	}
	return a, b, true
}

func (s *Server) compareChecklists(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	a, b, ok := s.loadPair(w, r, req.ChecklistA, req.ChecklistB)
	if !ok {
		return
	}

	report, err := compare.Checklists(a, b)
	if err != nil {
		if errors.Is(err, compare.ErrInstrumentMismatch) || errors.Is(err, compare.ErrStudyMismatch) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) discrepancyNotes(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		writeError(w, http.StatusServiceUnavailable, "LLM not configured (set ANTHROPIC_API_KEY)")
		return
	}

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	a, b, ok := s.loadPair(w, r, req.ChecklistA, req.ChecklistB)
	if !ok {
		return
	}

	report, err := compare.Checklists(a, b)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var lines []string
	for _, entry := range report.Entries {
		if entry.Status != compare.StatusDiscrepant {
			continue
		}
		for _, diff := range entry.Diffs {
			lines = append(lines, fmt.Sprintf("%s %s: %s vs %s", entry.Key, diff.ID, diff.A, diff.B))
		}
	}
	if len(lines) == 0 {
		writeJSON(w, http.StatusOK, []llm.DiscrepancyNote{})
		return
	}

	notes, err := s.llm.DraftDiscrepancyNotes(r.Context(), string(a.Instrument), lines)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("LLM note drafting failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// ResolutionBody is one consensus resolution in a reconcile request, keyed
// by item or domain ID.
type ResolutionBody struct {
	Answers   map[string]string `json:"answers,omitempty"`
	Responses map[string]string `json:"responses,omitempty"`
	Comment   string            `json:"comment,omitempty"`
	Judgement string            `json:"judgement,omitempty"`
}

// ReconcileRequest is the JSON body for POST /api/v1/reconcile.
type ReconcileRequest struct {
	ChecklistA  string                    `json:"checklist_a"`
	ChecklistB  string                    `json:"checklist_b"`
	Reviewer    string                    `json:"reviewer"`
	Name        string                    `json:"name"`
	Resolutions map[string]ResolutionBody `json:"resolutions"`
}

func (s *Server) reconcileChecklists(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	a, b, ok := s.loadPair(w, r, req.ChecklistA, req.ChecklistB)
	if !ok {
		return
	}

	resolutions := make(map[string]compare.Resolution, len(req.Resolutions))
	for key, body := range req.Resolutions {
		res := compare.Resolution{Comment: body.Comment}
		if len(body.Answers) > 0 {
			res.Answers = make(map[string]models.BoolAnswer, len(body.Answers))
			for id, v := range body.Answers {
				res.Answers[id] = models.BoolAnswer(v)
			}
		}
		if len(body.Responses) > 0 {
			res.Responses = make(map[string]models.Response, len(body.Responses))
			for id, v := range body.Responses {
				res.Responses[id] = models.Response(v)
			}
		}
		if body.Judgement != "" {
			res.Judgement = &models.DomainJudgement{
				Judgement: models.RiskLevel(body.Judgement),
				Source:    models.JudgementManual,
			}
		}
		resolutions[key] = res
	}

	merged, err := compare.Reconcile(a, b, resolutions, models.ChecklistMeta{
		Name:     req.Name,
		Reviewer: req.Reviewer,
	})
	if err != nil {
		switch {
		case errors.Is(err, compare.ErrUnresolved):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, compare.ErrInstrumentMismatch), errors.Is(err, compare.ErrStudyMismatch):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if err := s.store.CreateChecklist(r.Context(), merged); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// The consensus record exists at this point; a failure to retire the
	// sources must not fail the request.
	if _, err := s.store.MarkSuperseded(r.Context(), []string{a.ID, b.ID}); err != nil {
		slog.Warn("failed to supersede source checklists", "a", a.ID, "b", b.ID, "error", err)
	}
	writeJSON(w, http.StatusCreated, merged)
}

// --- Instruments ---

func (s *Server) listInstruments(w http.ResponseWriter, r *http.Request) {
	var defs []*catalog.InstrumentDef
	for _, t := range []models.InstrumentType{
		models.InstrumentAmstar2,
		models.InstrumentRobinsI,
		models.InstrumentRob2,
	} {
		def, err := catalog.Definition(t)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defs = append(defs, def)
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) getInstrument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	def, err := catalog.Definition(models.InstrumentType(id))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, def)
}
