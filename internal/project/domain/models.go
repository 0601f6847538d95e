// Package domain contains persistence models for projects and the resources
// scoped under them. Every mutable entity here is a versioned aggregate:
// updates go through the optimistic-lock contract and are audited.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/propfolio/backend/pkg/versioning"
)

// Project is a property investment owned by one user.
type Project struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID `gorm:"not null;index" json:"user_id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	Address       string       `gorm:"type:text" json:"address"`
	City          string       `gorm:"type:text" json:"city"`
	Country       string       `gorm:"type:text" json:"country"`
	PurchasePrice int64        `gorm:"not null;default:0" json:"purchase_price"`
	Currency      string       `gorm:"type:text;not null;default:'EUR'" json:"currency"`
	Notes         string       `gorm:"type:text" json:"notes"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }

func (p *Project) AggregateID() snowflake.ID { return p.ID }

// Amenity is a feature of a project (garage, balcony, elevator, ...).
type Amenity struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	ProjectID snowflake.ID `gorm:"not null;index" json:"project_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Details   string       `gorm:"type:text" json:"details"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Amenity) TableName() string { return "amenities" }

func (a *Amenity) AggregateID() snowflake.ID { return a.ID }

// Contact is an address-book entry of the user (notary, tenant, handyman).
type Contact struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID snowflake.ID `gorm:"not null;index" json:"user_id"`
	Name   string       `gorm:"type:text;not null" json:"name"`
	Email  string       `gorm:"type:text" json:"email"`
	Phone  string       `gorm:"type:text" json:"phone"`
	Role   string       `gorm:"type:text" json:"role"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Contact) TableName() string { return "contacts" }

func (c *Contact) AggregateID() snowflake.ID { return c.ID }

type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "OPEN"
	TaskStatusDone TaskStatus = "DONE"
)

// Task is a to-do attached to a project.
type Task struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	ProjectID snowflake.ID `gorm:"not null;index" json:"project_id"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Status    TaskStatus   `gorm:"type:text;not null;default:'OPEN'" json:"status"`
	DueAt     *time.Time   `gorm:"" json:"due_at,omitempty"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Task) TableName() string { return "tasks" }

func (t *Task) AggregateID() snowflake.ID { return t.ID }

type AttachmentKind string

const (
	AttachmentKindPhoto    AttachmentKind = "PHOTO"
	AttachmentKindVideo    AttachmentKind = "VIDEO"
	AttachmentKindDocument AttachmentKind = "DOCUMENT"
)

// Attachment references a stored file for a project. The file itself lives in
// external storage; only the reference is owned here.
type Attachment struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID     snowflake.ID   `gorm:"not null;index" json:"user_id"`
	ProjectID  snowflake.ID   `gorm:"not null;index" json:"project_id"`
	Kind       AttachmentKind `gorm:"type:text;not null" json:"kind"`
	FileName   string         `gorm:"type:text;not null" json:"file_name"`
	StorageKey string         `gorm:"type:text;not null" json:"storage_key"`
	SizeBytes  int64          `gorm:"not null;default:0" json:"size_bytes"`
	versioning.Versioned
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Attachment) TableName() string { return "attachments" }

func (a *Attachment) AggregateID() snowflake.ID { return a.ID }
