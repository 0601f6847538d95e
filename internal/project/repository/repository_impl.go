package repository

import (
	"github.com/propfolio/backend/internal/project/domain"
	pkgrepo "github.com/propfolio/backend/pkg/repository"
	"gorm.io/gorm"
)

// Stores bundles the generic stores for the project module's entities.
type Stores struct {
	Projects    pkgrepo.Repository[domain.Project]
	Amenities   pkgrepo.Repository[domain.Amenity]
	Contacts    pkgrepo.Repository[domain.Contact]
	Tasks       pkgrepo.Repository[domain.Task]
	Attachments pkgrepo.Repository[domain.Attachment]
}

func Provide(db *gorm.DB) Stores {
	return Stores{
		Projects:    pkgrepo.ProvideStore[domain.Project](db),
		Amenities:   pkgrepo.ProvideStore[domain.Amenity](db),
		Contacts:    pkgrepo.ProvideStore[domain.Contact](db),
		Tasks:       pkgrepo.ProvideStore[domain.Task](db),
		Attachments: pkgrepo.ProvideStore[domain.Attachment](db),
	}
}
