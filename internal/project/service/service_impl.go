package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/propfolio/backend/internal/audit/domain"
	"github.com/propfolio/backend/internal/clock"
	"github.com/propfolio/backend/internal/project/domain"
	"github.com/propfolio/backend/internal/project/repository"
	transactiondomain "github.com/propfolio/backend/internal/transaction/domain"
	"github.com/propfolio/backend/pkg/db/option"
	"github.com/propfolio/backend/pkg/telemetry"
	"github.com/propfolio/backend/pkg/uow"
	"github.com/propfolio/backend/pkg/versioning"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	kindProject    = "project"
	kindAmenity    = "amenity"
	kindContact    = "contact"
	kindTask       = "task"
	kindAttachment = "attachment"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Uow      *uow.Manager
	Stores   repository.Stores
	AuditSvc auditdomain.Recorder
	Metrics  *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	uow      *uow.Manager
	stores   repository.Stores
	auditSvc auditdomain.Recorder
	metrics  *telemetry.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("project.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		uow:      p.Uow,
		stores:   p.Stores,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) CreateProject(ctx context.Context, userID snowflake.ID, req domain.CreateProjectRequest) (*domain.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}

	now := s.clock.Now()
	project := &domain.Project{
		ID:            s.genID.Generate(),
		UserID:        userID,
		Name:          name,
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		Country:       strings.TrimSpace(req.Country),
		PurchasePrice: req.PurchasePrice,
		Currency:      currency,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.stores.Projects.Create(ctx, project); err != nil {
			return err
		}
		return s.auditSvc.LogCreate(ctx, userID, kindProject, project.ID, project)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, userID, id snowflake.ID) (*domain.Project, error) {
	project, err := s.stores.Projects.FindOne(ctx, &domain.Project{ID: id, UserID: userID})
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, domain.ErrNotFound
	}
	return project, nil
}

func (s *Service) ListProjects(ctx context.Context, userID snowflake.ID) ([]*domain.Project, error) {
	return s.stores.Projects.Find(ctx, &domain.Project{UserID: userID}, option.WithOrder("created_at ASC"))
}

func (s *Service) UpdateProject(ctx context.Context, userID, id snowflake.ID, req domain.UpdateProjectRequest) (*domain.Project, error) {
	var updated *domain.Project
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		project, err := s.GetProject(ctx, userID, id)
		if err != nil {
			return err
		}
		before := *project

		err = versioning.Apply(ctx, uow.Tx(ctx, s.db), project, req.ExpectedVersion, func() error {
			if req.Name != nil {
				if strings.TrimSpace(*req.Name) == "" {
					return domain.ErrInvalidName
				}
				project.Name = strings.TrimSpace(*req.Name)
			}
			if req.Address != nil {
				project.Address = strings.TrimSpace(*req.Address)
			}
			if req.City != nil {
				project.City = strings.TrimSpace(*req.City)
			}
			if req.Country != nil {
				project.Country = strings.TrimSpace(*req.Country)
			}
			if req.PurchasePrice != nil {
				project.PurchasePrice = *req.PurchasePrice
			}
			if req.Currency != nil {
				project.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
			}
			if req.Notes != nil {
				project.Notes = *req.Notes
			}
			project.UpdatedAt = s.clock.Now()
			return nil
		})
		if err != nil {
			if err == versioning.ErrVersionConflict {
				s.metrics.VersionConflict(kindProject)
			}
			return err
		}

		if err := s.auditSvc.LogUpdate(ctx, userID, kindProject, project.ID, &before, req.Patch()); err != nil {
			return err
		}
		updated = project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProject removes the project and its scoped resources in one scope.
func (s *Service) DeleteProject(ctx context.Context, userID, id snowflake.ID) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		project, err := s.GetProject(ctx, userID, id)
		if err != nil {
			return err
		}

		// Occurrences reference transactions, transactions reference the
		// project. Delete leaf rows first so the foreign keys hold.
		tx := uow.Tx(ctx, s.db).WithContext(ctx)
		for _, model := range []any{
			&transactiondomain.TransactionOccurrence{},
			&transactiondomain.Transaction{},
			&domain.Amenity{},
			&domain.Task{},
			&domain.Attachment{},
		} {
			if err := tx.Where("project_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := s.stores.Projects.Delete(ctx, id.String()); err != nil {
			return err
		}
		return s.auditSvc.LogDelete(ctx, userID, kindProject, id, project)
	})
}

func (s *Service) AddAmenity(ctx context.Context, userID snowflake.ID, req domain.CreateAmenityRequest) (*domain.Amenity, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	amenity := &domain.Amenity{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ProjectID: req.ProjectID,
		Name:      name,
		Details:   req.Details,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := s.GetProject(ctx, userID, req.ProjectID); err != nil {
			return err
		}
		if err := s.stores.Amenities.Create(ctx, amenity); err != nil {
			return err
		}
		return s.auditSvc.LogCreate(ctx, userID, kindAmenity, amenity.ID, amenity)
	})
	if err != nil {
		return nil, err
	}
	return amenity, nil
}

func (s *Service) UpdateAmenity(ctx context.Context, userID, id snowflake.ID, req domain.UpdateAmenityRequest) (*domain.Amenity, error) {
	var updated *domain.Amenity
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		amenity, err := s.stores.Amenities.FindOne(ctx, &domain.Amenity{ID: id, UserID: userID})
		if err != nil {
			return err
		}
		if amenity == nil {
			return domain.ErrNotFound
		}
		before := *amenity

		err = versioning.Apply(ctx, uow.Tx(ctx, s.db), amenity, req.ExpectedVersion, func() error {
			if req.Name != nil {
				if strings.TrimSpace(*req.Name) == "" {
					return domain.ErrInvalidName
				}
				amenity.Name = strings.TrimSpace(*req.Name)
			}
			if req.Details != nil {
				amenity.Details = *req.Details
			}
			amenity.UpdatedAt = s.clock.Now()
			return nil
		})
		if err != nil {
			if err == versioning.ErrVersionConflict {
				s.metrics.VersionConflict(kindAmenity)
			}
			return err
		}

		if err := s.auditSvc.LogUpdate(ctx, userID, kindAmenity, amenity.ID, &before, req.Patch()); err != nil {
			return err
		}
		updated = amenity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) RemoveAmenity(ctx context.Context, userID, id snowflake.ID) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		amenity, err := s.stores.Amenities.FindOne(ctx, &domain.Amenity{ID: id, UserID: userID})
		if err != nil {
			return err
		}
		if amenity == nil {
			return domain.ErrNotFound
		}
		if err := s.stores.Amenities.Delete(ctx, id.String()); err != nil {
			return err
		}
		return s.auditSvc.LogDelete(ctx, userID, kindAmenity, id, amenity)
	})
}

func (s *Service) ListAmenities(ctx context.Context, userID, projectID snowflake.ID) ([]*domain.Amenity, error) {
	return s.stores.Amenities.Find(ctx, &domain.Amenity{UserID: userID, ProjectID: projectID}, option.WithOrder("created_at ASC"))
}

func (s *Service) CreateContact(ctx context.Context, userID snowflake.ID, req domain.CreateContactRequest) (*domain.Contact, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	contact := &domain.Contact{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Role:      strings.TrimSpace(req.Role),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.stores.Contacts.Create(ctx, contact); err != nil {
			return err
		}
		return s.auditSvc.LogCreate(ctx, userID, kindContact, contact.ID, contact)
	})
	if err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *Service) ListContacts(ctx context.Context, userID snowflake.ID) ([]*domain.Contact, error) {
	return s.stores.Contacts.Find(ctx, &domain.Contact{UserID: userID}, option.WithOrder("name ASC"))
}

func (s *Service) DeleteContact(ctx context.Context, userID, id snowflake.ID) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		contact, err := s.stores.Contacts.FindOne(ctx, &domain.Contact{ID: id, UserID: userID})
		if err != nil {
			return err
		}
		if contact == nil {
			return domain.ErrNotFound
		}
		if err := s.stores.Contacts.Delete(ctx, id.String()); err != nil {
			return err
		}
		return s.auditSvc.LogDelete(ctx, userID, kindContact, id, contact)
	})
}

func (s *Service) CreateTask(ctx context.Context, userID snowflake.ID, req domain.CreateTaskRequest) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	task := &domain.Task{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ProjectID: req.ProjectID,
		Title:     title,
		Status:    domain.TaskStatusOpen,
		DueAt:     req.DueAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := s.GetProject(ctx, userID, req.ProjectID); err != nil {
			return err
		}
		if err := s.stores.Tasks.Create(ctx, task); err != nil {
			return err
		}
		return s.auditSvc.LogCreate(ctx, userID, kindTask, task.ID, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) UpdateTask(ctx context.Context, userID, id snowflake.ID, req domain.UpdateTaskRequest) (*domain.Task, error) {
	var updated *domain.Task
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		task, err := s.stores.Tasks.FindOne(ctx, &domain.Task{ID: id, UserID: userID})
		if err != nil {
			return err
		}
		if task == nil {
			return domain.ErrNotFound
		}
		before := *task

		err = versioning.Apply(ctx, uow.Tx(ctx, s.db), task, req.ExpectedVersion, func() error {
			if req.Title != nil {
				if strings.TrimSpace(*req.Title) == "" {
					return domain.ErrInvalidName
				}
				task.Title = strings.TrimSpace(*req.Title)
			}
			if req.Status != nil {
				switch domain.TaskStatus(*req.Status) {
				case domain.TaskStatusOpen, domain.TaskStatusDone:
					task.Status = domain.TaskStatus(*req.Status)
				default:
					return domain.ErrInvalidStatus
				}
			}
			if req.DueAt != nil {
				task.DueAt = req.DueAt
			}
			task.UpdatedAt = s.clock.Now()
			return nil
		})
		if err != nil {
			if err == versioning.ErrVersionConflict {
				s.metrics.VersionConflict(kindTask)
			}
			return err
		}

		if err := s.auditSvc.LogUpdate(ctx, userID, kindTask, task.ID, &before, req.Patch()); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) ListTasks(ctx context.Context, userID, projectID snowflake.ID) ([]*domain.Task, error) {
	return s.stores.Tasks.Find(ctx, &domain.Task{UserID: userID, ProjectID: projectID}, option.WithOrder("created_at ASC"))
}

func (s *Service) AddAttachment(ctx context.Context, userID snowflake.ID, req domain.CreateAttachmentRequest) (*domain.Attachment, error) {
	switch req.Kind {
	case domain.AttachmentKindPhoto, domain.AttachmentKindVideo, domain.AttachmentKindDocument:
	default:
		return nil, domain.ErrInvalidKind
	}
	if strings.TrimSpace(req.FileName) == "" || strings.TrimSpace(req.StorageKey) == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	attachment := &domain.Attachment{
		ID:         s.genID.Generate(),
		UserID:     userID,
		ProjectID:  req.ProjectID,
		Kind:       req.Kind,
		FileName:   strings.TrimSpace(req.FileName),
		StorageKey: strings.TrimSpace(req.StorageKey),
		SizeBytes:  req.SizeBytes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if _, err := s.GetProject(ctx, userID, req.ProjectID); err != nil {
			return err
		}
		if err := s.stores.Attachments.Create(ctx, attachment); err != nil {
			return err
		}
		return s.auditSvc.LogCreate(ctx, userID, kindAttachment, attachment.ID, attachment)
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

func (s *Service) RemoveAttachment(ctx context.Context, userID, id snowflake.ID) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		attachment, err := s.stores.Attachments.FindOne(ctx, &domain.Attachment{ID: id, UserID: userID})
		if err != nil {
			return err
		}
		if attachment == nil {
			return domain.ErrNotFound
		}
		if err := s.stores.Attachments.Delete(ctx, id.String()); err != nil {
			return err
		}
		return s.auditSvc.LogDelete(ctx, userID, kindAttachment, id, attachment)
	})
}

func (s *Service) ListAttachments(ctx context.Context, userID, projectID snowflake.ID) ([]*domain.Attachment, error) {
	return s.stores.Attachments.Find(ctx, &domain.Attachment{UserID: userID, ProjectID: projectID}, option.WithOrder("created_at ASC"))
}
