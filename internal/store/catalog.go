package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/rewear/internal/model"
)

// Catalog sort orders.
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortCostAsc  = "cost_asc"
	SortCostDesc = "cost_desc"
)

var sortClauses = map[string]string{
	SortNewest:   `i.created_at DESC, i.id DESC`,
	SortOldest:   `i.created_at, i.id`,
	SortCostAsc:  `i.point_cost, i.id`,
	SortCostDesc: `i.point_cost DESC, i.id DESC`,
}

// ValidSort reports whether s names a known sort order. Empty means newest.
func ValidSort(s string) bool {
	_, ok := sortClauses[s]
	return ok || s == ""
}

// MaxPageSize caps catalog page sizes.
const MaxPageSize = 100

// Filter narrows a catalog query. Zero values do not filter.
type Filter struct {
	Category      string
	Type          string
	Tag           string
	Size          string
	Condition     string
	Query         string // substring of title or description
	AvailableOnly bool
	FeaturedOnly  bool
	Sort          string
	Limit         int
	Offset        int
}

// SearchItems returns approved, live listings matching f. Pending and
// deleted listings are never visible here.
func SearchItems(ctx context.Context, q Querier, f Filter) ([]model.Item, error) {
	where := []string{`i.deleted_at IS NULL`, `i.state <> ?`}
	args := []any{model.ItemStatePending}

	eq := func(column, value string) {
		if value != "" {
			where = append(where, column+` = ?`)
			args = append(args, value)
		}
	}
	eq(`i.category`, f.Category)
	eq(`i.type`, f.Type)
	eq(`i.size`, f.Size)
	eq(`i.condition`, f.Condition)

	if f.Tag != "" {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(i.tags) WHERE json_each.value = ?)`)
		args = append(args, strings.ToLower(f.Tag))
	}
	if f.Query != "" {
		where = append(where, `(i.title LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(f.Query) + "%"
		args = append(args, pattern, pattern)
	}
	if f.AvailableOnly {
		where = append(where, `i.state = ?`)
		args = append(args, model.ItemStateAvailable)
	}
	if f.FeaturedOnly {
		where = append(where, `i.featured = 1`)
	}

	order, ok := sortClauses[f.Sort]
	if !ok {
		order = sortClauses[SortNewest]
	}

	query := itemSelect + ` WHERE ` + strings.Join(where, ` AND `) + ` ORDER BY ` + order
	if f.Limit > 0 {
		limit := min(f.Limit, MaxPageSize)
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, max(f.Offset, 0))
	}

	var items []model.Item
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	return items, nil
}

// GetVisibleItem returns an approved, live listing, or nil.
func GetVisibleItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	item, err := GetItem(ctx, q, id)
	if err != nil || item == nil {
		return nil, err
	}
	if item.DeletedAt != nil || !item.Approved() {
		return nil, nil
	}
	return item, nil
}

// SuggestTags returns up to limit distinct tags of visible listings that
// contain query, case-insensitively.
func SuggestTags(ctx context.Context, q Querier, query string, limit int) ([]string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return []string{}, nil
	}

	var tags []string
	err := sqlx.SelectContext(ctx, q, &tags,
		`SELECT DISTINCT je.value
		 FROM items i, json_each(i.tags) je
		 WHERE i.deleted_at IS NULL AND i.state <> ?
		   AND je.value LIKE ? ESCAPE '\'
		 ORDER BY je.value
		 LIMIT ?`,
		model.ItemStatePending, "%"+escapeLike(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("suggesting tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
