package repository

import (
	"context"

	"github.com/propfolio/backend/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic store over one gorm model. Every method resolves
// the unit-of-work transaction from ctx when one is open, so repositories
// never need an explicit transaction handle threaded through call sites.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Delete(ctx context.Context, resourceID string) error
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
