package option

import (
	"entitlement-controlplane/pkg/db/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a query before it is executed by a repository.
type QueryOption func(*gorm.DB) *gorm.DB

type Direction string

const (
	ASC  Direction = "asc"
	DESC Direction = "desc"
)

type QuerySortBy struct {
	Field     string
	Direction Direction
}

// ApplyPagination limits the query to p.Limit+1 rows after the decoded
// cursor id, ordered by id. The extra row is consumed by
// pagination.BuildCursorPageInfo.
func ApplyPagination(p pagination.Pagination) QueryOption {
	p = p.Normalize()
	return func(db *gorm.DB) *gorm.DB {
		if p.Cursor != "" {
			cursor, err := pagination.DecodeCursor(p.Cursor)
			if err != nil {
				_ = db.AddError(err)
				return db
			}
			db = db.Where("id > ?", cursor.ID)
		}
		return db.Order("id asc").Limit(p.Limit + 1)
	}
}

func WithSortBy(sorts ...QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		for _, s := range sorts {
			db = db.Order(clause.OrderByColumn{
				Column: clause.Column{Name: s.Field},
				Desc:   s.Direction == DESC,
			})
		}
		return db
	}
}
