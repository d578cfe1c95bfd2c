package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/corates/corates/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Projects ---

func (s *SQLiteStore) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = newULID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*models.Project, error) {
	p := &models.Project{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	p := &models.Project{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM projects WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStore) UpdateProject(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name=?, description=?, updated_at=? WHERE id=?`,
		p.Name, p.Description, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project not found: %s", p.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

// --- Studies ---

func (s *SQLiteStore) CreateStudy(ctx context.Context, study *models.Study) error {
	if study.ID == "" {
		study.ID = newULID()
	}
	now := time.Now().UTC()
	study.CreatedAt = now
	study.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO studies (id, project_id, title, authors, year, design, doi, first_reviewer, second_reviewer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		study.ID, study.ProjectID, study.Title, study.Authors, study.Year, study.Design,
		study.DOI, study.FirstReviewer, study.SecondReviewer, study.CreatedAt, study.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create study: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetStudy(ctx context.Context, id string) (*models.Study, error) {
	study := &models.Study{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, authors, year, design, doi, first_reviewer, second_reviewer, created_at, updated_at
		FROM studies WHERE id = ?`, id,
	).Scan(&study.ID, &study.ProjectID, &study.Title, &study.Authors, &study.Year,
		&study.Design, &study.DOI, &study.FirstReviewer, &study.SecondReviewer,
		&study.CreatedAt, &study.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("study not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get study: %w", err)
	}
	return study, nil
}

func (s *SQLiteStore) ListStudies(ctx context.Context, projectID string) ([]*models.Study, error) {
	query := `SELECT id, project_id, title, authors, year, design, doi, first_reviewer, second_reviewer, created_at, updated_at
		FROM studies`
	var args []any
	if projectID != "" {
		query += " WHERE project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY title"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list studies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var studies []*models.Study
	for rows.Next() {
		study := &models.Study{}
		if err := rows.Scan(&study.ID, &study.ProjectID, &study.Title, &study.Authors,
			&study.Year, &study.Design, &study.DOI, &study.FirstReviewer,
			&study.SecondReviewer, &study.CreatedAt, &study.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		studies = append(studies, study)
	}
	return studies, rows.Err()
}

func (s *SQLiteStore) UpdateStudy(ctx context.Context, study *models.Study) error {
	study.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE studies SET title=?, authors=?, year=?, design=?, doi=?, first_reviewer=?, second_reviewer=?, updated_at=?
		WHERE id=?`,
		study.Title, study.Authors, study.Year, study.Design, study.DOI,
		study.FirstReviewer, study.SecondReviewer, study.UpdatedAt, study.ID,
	)
	if err != nil {
		return fmt.Errorf("update study: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("study not found: %s", study.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteStudy(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM studies WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete study: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("study not found: %s", id)
	}
	return nil
}

// --- Checklists ---

// marshalForm serializes the instrument-specific form body for storage.
func marshalForm(c *models.Checklist) (string, error) {
	var form any
	switch c.Instrument {
	case models.InstrumentAmstar2:
		form = c.Amstar
	case models.InstrumentRobinsI:
		form = c.Robins
	case models.InstrumentRob2:
		form = c.Rob2
	default:
		return "", fmt.Errorf("unknown instrument: %q", c.Instrument)
	}
	data, err := json.Marshal(form)
	if err != nil {
		return "", fmt.Errorf("marshal %s form: %w", c.Instrument, err)
	}
	return string(data), nil
}

// unmarshalForm restores the form body onto the matching variant pointer.
func unmarshalForm(c *models.Checklist, data string) error {
	var err error
	switch c.Instrument {
	case models.InstrumentAmstar2:
		c.Amstar = &models.AmstarForm{}
		err = json.Unmarshal([]byte(data), c.Amstar)
	case models.InstrumentRobinsI:
		c.Robins = &models.RobinsForm{}
		err = json.Unmarshal([]byte(data), c.Robins)
	case models.InstrumentRob2:
		c.Rob2 = &models.Rob2Form{}
		err = json.Unmarshal([]byte(data), c.Rob2)
	default:
		return fmt.Errorf("unknown instrument: %q", c.Instrument)
	}
	if err != nil {
		return fmt.Errorf("unmarshal %s form: %w", c.Instrument, err)
	}
	return nil
}

func (s *SQLiteStore) CreateChecklist(ctx context.Context, c *models.Checklist) error {
	if c.ID == "" {
		c.ID = newULID()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.ChecklistStatusNotStarted
	}

	form, err := marshalForm(c)
	if err != nil {
		return err
	}
	sources, err := json.Marshal(c.SourceChecklists)
	if err != nil {
		sources = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checklists (id, study_id, instrument, name, reviewer, assigned_to, status, source_checklists, form, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.StudyID, string(c.Instrument), c.Name, c.Reviewer, c.AssignedTo,
		string(c.Status), string(sources), form, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create checklist: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetChecklist(ctx context.Context, id string) (*models.Checklist, error) {
	c := &models.Checklist{}
	var instrument, status, sources, form string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, study_id, instrument, name, reviewer, assigned_to, status, source_checklists, form, created_at, updated_at
		FROM checklists WHERE id = ?`, id,
	).Scan(&c.ID, &c.StudyID, &instrument, &c.Name, &c.Reviewer, &c.AssignedTo,
		&status, &sources, &form, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checklist not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist: %w", err)
	}

	c.Instrument = models.InstrumentType(instrument)
	c.Status = models.ChecklistStatus(status)
	_ = json.Unmarshal([]byte(sources), &c.SourceChecklists)
	if err := unmarshalForm(c, form); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteStore) ListChecklists(ctx context.Context, filter ChecklistListFilter) ([]*models.Checklist, error) {
	query := `SELECT c.id, c.study_id, c.instrument, c.name, c.reviewer, c.assigned_to, c.status, c.source_checklists, c.form, c.created_at, c.updated_at
		FROM checklists c`
	var conditions []string
	var args []any

	if filter.ProjectID != "" {
		query += " JOIN studies st ON st.id = c.study_id"
		conditions = append(conditions, "st.project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.StudyID != "" {
		conditions = append(conditions, "c.study_id = ?")
		args = append(args, filter.StudyID)
	}
	if filter.Instrument != "" {
		conditions = append(conditions, "c.instrument = ?")
		args = append(args, string(filter.Instrument))
	}
	if filter.Status != "" {
		conditions = append(conditions, "c.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Reviewer != "" {
		conditions = append(conditions, "c.reviewer = ?")
		args = append(args, filter.Reviewer)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY
		CASE c.status WHEN 'not_started' THEN 0 WHEN 'in_progress' THEN 1 WHEN 'complete' THEN 2 WHEN 'superseded' THEN 3 ELSE 4 END,
		c.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checklists []*models.Checklist
	for rows.Next() {
		c := &models.Checklist{}
		var instrument, status, sources, form string

		if err := rows.Scan(&c.ID, &c.StudyID, &instrument, &c.Name, &c.Reviewer,
			&c.AssignedTo, &status, &sources, &form, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan checklist: %w", err)
		}

		c.Instrument = models.InstrumentType(instrument)
		c.Status = models.ChecklistStatus(status)
		_ = json.Unmarshal([]byte(sources), &c.SourceChecklists)
		if err := unmarshalForm(c, form); err != nil {
			return nil, err
		}
		checklists = append(checklists, c)
	}
	return checklists, rows.Err()
}

// UpdateChecklist persists answer and metadata changes. The instrument
// column is deliberately not part of the update: the instrument type is
// immutable after creation.
func (s *SQLiteStore) UpdateChecklist(ctx context.Context, c *models.Checklist) error {
	c.UpdatedAt = time.Now().UTC()

	form, err := marshalForm(c)
	if err != nil {
		return err
	}
	sources, err := json.Marshal(c.SourceChecklists)
	if err != nil {
		sources = []byte("[]")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE checklists SET name=?, reviewer=?, assigned_to=?, status=?, source_checklists=?, form=?, updated_at=?
		WHERE id=?`,
		c.Name, c.Reviewer, c.AssignedTo, string(c.Status), string(sources), form, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("checklist not found: %s", c.ID)
	}
	return nil
}

// MarkSuperseded retires checklists that have been replaced by a reconciled
// record. Superseded checklists stay addressable forever; there is no
// delete.
func (s *SQLiteStore) MarkSuperseded(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, string(models.ChecklistStatusSuperseded), time.Now().UTC())
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"UPDATE checklists SET status=?, updated_at=? WHERE id IN (%s)",
		strings.Join(placeholders, ","),
	)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark superseded: %w", err)
	}
	return result.RowsAffected()
}
