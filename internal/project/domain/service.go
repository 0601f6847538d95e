package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateProjectRequest struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PurchasePrice int64  `json:"purchase_price"`
	Currency      string `json:"currency"`
	Notes         string `json:"notes"`
}

// UpdateProjectRequest is a patch: nil fields are left untouched and do not
// appear in the audit diff.
type UpdateProjectRequest struct {
	ExpectedVersion int64   `json:"expected_version"`
	Name            *string `json:"name,omitempty"`
	Address         *string `json:"address,omitempty"`
	City            *string `json:"city,omitempty"`
	Country         *string `json:"country,omitempty"`
	PurchasePrice   *int64  `json:"purchase_price,omitempty"`
	Currency        *string `json:"currency,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Patch returns the set of fields carried by the request, keyed by the json
// field names of Project.
func (r UpdateProjectRequest) Patch() map[string]any {
	patch := map[string]any{}
	if r.Name != nil {
		patch["name"] = *r.Name
	}
	if r.Address != nil {
		patch["address"] = *r.Address
	}
	if r.City != nil {
		patch["city"] = *r.City
	}
	if r.Country != nil {
		patch["country"] = *r.Country
	}
	if r.PurchasePrice != nil {
		patch["purchase_price"] = *r.PurchasePrice
	}
	if r.Currency != nil {
		patch["currency"] = *r.Currency
	}
	if r.Notes != nil {
		patch["notes"] = *r.Notes
	}
	return patch
}

type CreateAmenityRequest struct {
	ProjectID snowflake.ID `json:"project_id"`
	Name      string       `json:"name"`
	Details   string       `json:"details"`
}

type UpdateAmenityRequest struct {
	ExpectedVersion int64   `json:"expected_version"`
	Name            *string `json:"name,omitempty"`
	Details         *string `json:"details,omitempty"`
}

func (r UpdateAmenityRequest) Patch() map[string]any {
	patch := map[string]any{}
	if r.Name != nil {
		patch["name"] = *r.Name
	}
	if r.Details != nil {
		patch["details"] = *r.Details
	}
	return patch
}

type CreateContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type CreateTaskRequest struct {
	ProjectID snowflake.ID `json:"project_id"`
	Title     string       `json:"title"`
	DueAt     *time.Time   `json:"due_at,omitempty"`
}

type UpdateTaskRequest struct {
	ExpectedVersion int64      `json:"expected_version"`
	Title           *string    `json:"title,omitempty"`
	Status          *string    `json:"status,omitempty"`
	DueAt           *time.Time `json:"due_at,omitempty"`
}

func (r UpdateTaskRequest) Patch() map[string]any {
	patch := map[string]any{}
	if r.Title != nil {
		patch["title"] = *r.Title
	}
	if r.Status != nil {
		patch["status"] = *r.Status
	}
	if r.DueAt != nil {
		patch["due_at"] = *r.DueAt
	}
	return patch
}

type CreateAttachmentRequest struct {
	ProjectID  snowflake.ID   `json:"project_id"`
	Kind       AttachmentKind `json:"kind"`
	FileName   string         `json:"file_name"`
	StorageKey string         `json:"storage_key"`
	SizeBytes  int64          `json:"size_bytes"`
}

// Service is the project module surface. All mutations run inside a unit of
// work, apply the versioned aggregate contract, and append an audit record.
type Service interface {
	CreateProject(ctx context.Context, userID snowflake.ID, req CreateProjectRequest) (*Project, error)
	GetProject(ctx context.Context, userID, id snowflake.ID) (*Project, error)
	ListProjects(ctx context.Context, userID snowflake.ID) ([]*Project, error)
	UpdateProject(ctx context.Context, userID, id snowflake.ID, req UpdateProjectRequest) (*Project, error)
	DeleteProject(ctx context.Context, userID, id snowflake.ID) error

	AddAmenity(ctx context.Context, userID snowflake.ID, req CreateAmenityRequest) (*Amenity, error)
	UpdateAmenity(ctx context.Context, userID, id snowflake.ID, req UpdateAmenityRequest) (*Amenity, error)
	RemoveAmenity(ctx context.Context, userID, id snowflake.ID) error
	ListAmenities(ctx context.Context, userID, projectID snowflake.ID) ([]*Amenity, error)

	CreateContact(ctx context.Context, userID snowflake.ID, req CreateContactRequest) (*Contact, error)
	ListContacts(ctx context.Context, userID snowflake.ID) ([]*Contact, error)
	DeleteContact(ctx context.Context, userID, id snowflake.ID) error

	CreateTask(ctx context.Context, userID snowflake.ID, req CreateTaskRequest) (*Task, error)
	UpdateTask(ctx context.Context, userID, id snowflake.ID, req UpdateTaskRequest) (*Task, error)
	ListTasks(ctx context.Context, userID, projectID snowflake.ID) ([]*Task, error)

	AddAttachment(ctx context.Context, userID snowflake.ID, req CreateAttachmentRequest) (*Attachment, error)
	RemoveAttachment(ctx context.Context, userID, id snowflake.ID) error
	ListAttachments(ctx context.Context, userID, projectID snowflake.ID) ([]*Attachment, error)
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidProject = errors.New("invalid_project")
	ErrInvalidKind    = errors.New("invalid_attachment_kind")
	ErrInvalidStatus  = errors.New("invalid_task_status")
)
