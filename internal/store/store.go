package store

import (
	"context"

	"github.com/corates/corates/internal/models"
)

// ChecklistListFilter specifies filters for listing checklists.
type ChecklistListFilter struct {
	ProjectID  string
	StudyID    string
	Instrument models.InstrumentType
	Status     models.ChecklistStatus
	Reviewer   string
}

// Store defines the persistence interface for corates. Checklists are
// append-only: superseded records are retired by status, never deleted, so
// the reconciliation provenance chain stays intact.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Studies
	CreateStudy(ctx context.Context, study *models.Study) error
	GetStudy(ctx context.Context, id string) (*models.Study, error)
	ListStudies(ctx context.Context, projectID string) ([]*models.Study, error)
	UpdateStudy(ctx context.Context, study *models.Study) error
	DeleteStudy(ctx context.Context, id string) error

	// Checklists
	CreateChecklist(ctx context.Context, c *models.Checklist) error
	GetChecklist(ctx context.Context, id string) (*models.Checklist, error)
	ListChecklists(ctx context.Context, filter ChecklistListFilter) ([]*models.Checklist, error)
	UpdateChecklist(ctx context.Context, c *models.Checklist) error
	MarkSuperseded(ctx context.Context, ids []string) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
