package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/corates/corates/internal/catalog"
	"github.com/corates/corates/internal/compare"
	"github.com/corates/corates/internal/models"
	"github.com/corates/corates/internal/scoring"
	"github.com/corates/corates/internal/store"
)

// Server wraps the corates data layer and exposes it as MCP tools.
type Server struct {
	store store.Store
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store) *Server {
	return &Server{store: s}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("corates", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listProjectsTool())
	srv.AddTool(s.listStudiesTool())
	srv.AddTool(s.createStudyTool())
	srv.AddTool(s.listChecklistsTool())
	srv.AddTool(s.createChecklistTool())
	srv.AddTool(s.answerTool())
	srv.AddTool(s.scoreTool())
	srv.AddTool(s.compareTool())
	srv.AddTool(s.instrumentTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// corates_list_projects
func (s *Server) listProjectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_list_projects",
		mcp.WithDescription("List all appraisal projects. Returns a JSON array of projects with id, name, and description."),
	)
	return tool, s.handleListProjects
}

func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}

	type projectOut struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	out := make([]projectOut, len(projects))
	for i, p := range projects {
		out[i] = projectOut{ID: p.ID, Name: p.Name, Description: p.Description}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// corates_list_studies
func (s *Server) listStudiesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_list_studies",
		mcp.WithDescription("List studies in an appraisal project. Returns a JSON array of studies with id, title, authors, year, design, and assigned reviewers."),
		mcp.WithString("project", mcp.Description("Project name or ID to filter by")),
	)
	return tool, s.handleListStudies
}

func (s *Server) handleListStudies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := ""
	if projectName := request.GetString("project", ""); projectName != "" {
		p, err := s.resolveProject(ctx, projectName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
		}
		projectID = p.ID
	}

	studies, err := s.store.ListStudies(ctx, projectID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list studies: %v", err)), nil
	}

	type studyOut struct {
		ID             string `json:"id"`
		ProjectID      string `json:"project_id"`
		Title          string `json:"title"`
		Authors        string `json:"authors"`
		Year           int    `json:"year"`
		Design         string `json:"design"`
		DOI            string `json:"doi,omitempty"`
		FirstReviewer  string `json:"first_reviewer,omitempty"`
		SecondReviewer string `json:"second_reviewer,omitempty"`
	}

	out := make([]studyOut, len(studies))
	for i, st := range studies {
		out[i] = studyOut{
			ID:             st.ID,
			ProjectID:      st.ProjectID,
			Title:          st.Title,
			Authors:        st.Authors,
			Year:           st.Year,
			Design:         st.Design,
			DOI:            st.DOI,
			FirstReviewer:  st.FirstReviewer,
			SecondReviewer: st.SecondReviewer,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal studies: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// corates_create_study
func (s *Server) createStudyTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_create_study",
		mcp.WithDescription("Register a study in an appraisal project. Returns the created study as JSON."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or ID")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Study title")),
		mcp.WithString("authors", mcp.Description("Author list, e.g. 'Smith J, Jones K'")),
		mcp.WithString("design", mcp.Description("Study design: systematic review, randomized trial, non-randomized study")),
		mcp.WithString("doi", mcp.Description("DOI without URL prefix")),
	)
	return tool, s.handleCreateStudy
}

func (s *Server) handleCreateStudy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: project"), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	p, err := s.resolveProject(ctx, projectName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project not found: %s", projectName)), nil
	}

	study := &models.Study{
		ProjectID: p.ID,
		Title:     title,
		Authors:   request.GetString("authors", ""),
		Design:    request.GetString("design", ""),
		DOI:       request.GetString("doi", ""),
	}
	if err := s.store.CreateStudy(ctx, study); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create study: %v", err)), nil
	}

	result := map[string]any{
		"id":         study.ID,
		"project":    p.Name,
		"title":      study.Title,
		"authors":    study.Authors,
		"design":     study.Design,
		"created_at": study.CreatedAt.Format(time.RFC3339),
	}
	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}

// corates_list_checklists
func (s *Server) listChecklistsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_list_checklists",
		mcp.WithDescription("List appraisal checklists, optionally filtered by study, instrument, status, or reviewer. Returns a JSON array with id, study_id, instrument (amstar2/robins_i/rob2), reviewer, and status (not_started/in_progress/complete/superseded)."),
		mcp.WithString("study_id", mcp.Description("Study ID to filter by")),
		mcp.WithString("instrument", mcp.Description("Instrument filter: amstar2, robins_i, rob2")),
		mcp.WithString("status", mcp.Description("Status filter: not_started, in_progress, complete, superseded")),
		mcp.WithString("reviewer", mcp.Description("Reviewer name to filter by")),
	)
	return tool, s.handleListChecklists
}

func (s *Server) handleListChecklists(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.ChecklistListFilter{
		StudyID:    request.GetString("study_id", ""),
		Instrument: models.InstrumentType(request.GetString("instrument", "")),
		Status:     models.ChecklistStatus(request.GetString("status", "")),
		Reviewer:   request.GetString("reviewer", ""),
	}

	checklists, err := s.store.ListChecklists(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list checklists: %v", err)), nil
	}

	type checklistOut struct {
		ID               string   `json:"id"`
		StudyID          string   `json:"study_id"`
		Instrument       string   `json:"instrument"`
		Name             string   `json:"name"`
		Reviewer         string   `json:"reviewer"`
		Status           string   `json:"status"`
		SourceChecklists []string `json:"source_checklists,omitempty"`
		UpdatedAt        string   `json:"updated_at"`
	}

	out := make([]checklistOut, len(checklists))
	for i, c := range checklists {
		out[i] = checklistOut{
			ID:               c.ID,
			StudyID:          c.StudyID,
			Instrument:       string(c.Instrument),
			Name:             c.Name,
			Reviewer:         c.Reviewer,
			Status:           string(c.Status),
			SourceChecklists: c.SourceChecklists,
			UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal checklists: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// corates_create_checklist
func (s *Server) createChecklistTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_create_checklist",
		mcp.WithDescription("Create a blank appraisal checklist for a study. Every question starts unanswered. Returns the checklist id and instrument."),
		mcp.WithString("study_id", mcp.Required(), mcp.Description("Study ID")),
		mcp.WithString("instrument", mcp.Required(), mcp.Description("Instrument: amstar2, robins_i, rob2")),
		mcp.WithString("reviewer", mcp.Description("Reviewer name")),
	)
	return tool, s.handleCreateChecklist
}

func (s *Server) handleCreateChecklist(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	studyID, err := request.RequireString("study_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: study_id"), nil
	}
	instrument, err := request.RequireString("instrument")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: instrument"), nil
	}

	if _, err := s.store.GetStudy(ctx, studyID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("study not found: %s", studyID)), nil
	}

	c, err := catalog.NewChecklist(models.InstrumentType(instrument), models.ChecklistMeta{
		StudyID:  studyID,
		Reviewer: request.GetString("reviewer", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.CreateChecklist(ctx, c); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create checklist: %v", err)), nil
	}

	result := map[string]any{
		"id":         c.ID,
		"study_id":   c.StudyID,
		"instrument": string(c.Instrument),
		"reviewer":   c.Reviewer,
		"status":     string(c.Status),
	}
	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}

// corates_answer
func (s *Server) answerTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_answer",
		mcp.WithDescription("Record one answer on a checklist. For amstar2 checklists, unit is the item (q1..q16), question is the sub-question id, and response is yes or no. For robins_i and rob2 checklists, unit is the domain id, question is the signalling question id (e.g. 1.1), and response is one of yes, probably_yes, probably_no, no, no_information, not_applicable."),
		mcp.WithString("checklist_id", mcp.Required(), mcp.Description("Checklist ID (full ULID or unique prefix)")),
		mcp.WithString("unit", mcp.Required(), mcp.Description("Item or domain id")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Sub-question or signalling question id")),
		mcp.WithString("response", mcp.Required(), mcp.Description("The answer value")),
		mcp.WithString("comment", mcp.Description("Free-text supporting note")),
	)
	return tool, s.handleAnswer
}

func (s *Server) handleAnswer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	checklistID, err := request.RequireString("checklist_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: checklist_id"), nil
	}
	unit, err := request.RequireString("unit")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: unit"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	response, err := request.RequireString("response")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: response"), nil
	}
	comment := request.GetString("comment", "")

	c, err := s.findChecklist(ctx, checklistID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch c.Instrument {
	case models.InstrumentAmstar2:
		item, ok := c.Amstar.Items[unit]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown item: %s", unit)), nil
		}
		if _, ok := item.Answers[question]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown sub-question %s for item %s", question, unit)), nil
		}
		answer := models.BoolAnswer(response)
		if answer != models.BoolYes && answer != models.BoolNo {
			return mcp.NewToolResultError(fmt.Sprintf("invalid answer %q: amstar2 sub-questions take yes or no", response)), nil
		}
		item.Answers[question] = answer
		if comment != "" {
			item.Comment = comment
		}
	case models.InstrumentRobinsI, models.InstrumentRob2:
		form := c.DomainForm()
		dom, ok := form.Domains[unit]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown domain: %s", unit)), nil
		}
		if _, ok := dom.Answers[question]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown signalling question %s for domain %s", question, unit)), nil
		}
		resp := models.Response(response)
		if !resp.Answered() || !resp.ValidFor(c.Instrument) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid response for %s: %q", c.Instrument, response)), nil
		}
		dom.Answers[question] = models.SignalAnswer{Response: resp, Comment: comment}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown instrument: %s", c.Instrument)), nil
	}

	if err := scoring.AdvanceStatus(c); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.UpdateChecklist(ctx, c); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update checklist: %v", err)), nil
	}

	result := map[string]any{
		"checklist_id": c.ID,
		"unit":         unit,
		"question":     question,
		"response":     response,
		"status":       string(c.Status),
	}
	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}

// corates_score
func (s *Server) scoreTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_score",
		mcp.WithDescription("Score a checklist. For amstar2 returns the overall confidence rating (high/moderate/low/critically_low, or incomplete) with per-item ratings and weakness counts. For robins_i and rob2 returns per-domain judgements with the matched rule id and the worst-case overall judgement. Manual overrides are reported next to the engine's own judgement."),
		mcp.WithString("checklist_id", mcp.Required(), mcp.Description("Checklist ID (full ULID or unique prefix)")),
	)
	return tool, s.handleScore
}

func (s *Server) handleScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	checklistID, err := request.RequireString("checklist_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: checklist_id"), nil
	}

	c, err := s.findChecklist(ctx, checklistID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := scoring.Score(c)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to score checklist: %v", err)), nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal score: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// corates_compare
func (s *Server) compareTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_compare",
		mcp.WithDescription("Compare two double-coded checklists for the same study and instrument. Classifies every item or domain as agree, discrepant, or incomplete and reports the agreement rate (incomplete entries excluded)."),
		mcp.WithString("checklist_a", mcp.Required(), mcp.Description("First checklist ID")),
		mcp.WithString("checklist_b", mcp.Required(), mcp.Description("Second checklist ID")),
	)
	return tool, s.handleCompare
}

func (s *Server) handleCompare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aID, err := request.RequireString("checklist_a")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: checklist_a"), nil
	}
	bID, err := request.RequireString("checklist_b")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: checklist_b"), nil
	}

	a, err := s.findChecklist(ctx, aID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.findChecklist(ctx, bID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := compare.Checklists(a, b)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compare checklists: %v", err)), nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal report: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// corates_instrument
func (s *Server) instrumentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("corates_instrument",
		mcp.WithDescription("Get the full definition of an appraisal instrument: items with sub-questions for amstar2, domains with signalling questions for robins_i and rob2. Use this to learn valid unit and question ids before answering."),
		mcp.WithString("instrument", mcp.Required(), mcp.Description("Instrument: amstar2, robins_i, rob2")),
	)
	return tool, s.handleInstrument
}

func (s *Server) handleInstrument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instrument, err := request.RequireString("instrument")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: instrument"), nil
	}

	def, err := catalog.Definition(models.InstrumentType(instrument))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown instrument: %s", instrument)), nil
	}

	data, err := json.Marshal(def)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal definition: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveProject tries to find a project by name first, then by ID.
func (s *Server) resolveProject(ctx context.Context, name string) (*models.Project, error) {
	if p, err := s.store.GetProjectByName(ctx, name); err == nil {
		return p, nil
	}
	if p, err := s.store.GetProject(ctx, name); err == nil {
		return p, nil
	}
	return nil, fmt.Errorf("project not found: %s", name)
}

// findChecklist finds a checklist by full ID or unique prefix.
func (s *Server) findChecklist(ctx context.Context, id string) (*models.Checklist, error) {
	if c, err := s.store.GetChecklist(ctx, id); err == nil {
		return c, nil
	}

	upper := strings.ToUpper(id)
	checklists, err := s.store.ListChecklists(ctx, store.ChecklistListFilter{})
	if err != nil {
		return nil, err
	}

	var matches []*models.Checklist
	for _, c := range checklists {
		if strings.HasPrefix(c.ID, upper) {
			matches = append(matches, c)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("checklist not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous checklist ID %s: matches %d checklists", id, len(matches))
	}
}
