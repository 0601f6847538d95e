package option

import "gorm.io/gorm"

// QueryOption customizes a gorm statement built by the generic store.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type limitOption struct {
	limit int
}

func (o limitOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(o.limit)
}

func WithLimit(limit int) QueryOption {
	return limitOption{limit: limit}
}

type offsetOption struct {
	offset int
}

func (o offsetOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Offset(o.offset)
}

func WithOffset(offset int) QueryOption {
	return offsetOption{offset: offset}
}

type orderOption struct {
	order string
}

func (o orderOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Order(o.order)
}

func WithOrder(order string) QueryOption {
	return orderOption{order: order}
}

type whereOption struct {
	query string
	args  []any
}

func (o whereOption) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(o.query, o.args...)
}

func WithWhere(query string, args ...any) QueryOption {
	return whereOption{query: query, args: args}
}
