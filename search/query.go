// Package search builds the filtered, paginated facility listing used by the
// live search endpoint and the dashboard.
package search

import (
	"math"
	"strings"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/models"
)

const (
	// MaxResults caps a live search response.
	MaxResults = 10
	// PageSize is the dashboard table page length.
	PageSize = 10
)

// SelectClause lists the facility columns every listing returns, in scan order.
const SelectClause = `SELECT f.id, f.title, f.category, c.name, f.description,
       f.house_number, f.street_name, f.town, f.county, f.postcode,
       f.lat, f.lng, f.contributor, f.comments, f.created_at
FROM facilities f
JOIN categories c ON c.id = f.category`

// SortField selects the primary ordering column.
type SortField int

const (
	SortByID SortField = iota
	SortByTitle
)

// Sort orders results. Title ordering falls back to id so that pages are
// deterministic.
type Sort struct {
	Field SortField
	Desc  bool
}

// ParseDirection maps "ASC"/"DESC" (any case) to a descending flag. Anything
// else is ascending.
func ParseDirection(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "DESC")
}

func (s Sort) sql() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if s.Field == SortByTitle {
		return ` ORDER BY f.title COLLATE "C" ` + dir + ", f.id ASC"
	}
	return " ORDER BY f.id " + dir
}

// Less reports whether a sorts before b. Titles compare byte-wise, matching
// the "C" collation the SQL ordering uses.
func (s Sort) Less(a, b models.Facility) bool {
	if s.Field == SortByTitle && a.Title != b.Title {
		if s.Desc {
			return a.Title > b.Title
		}
		return a.Title < b.Title
	}
	if s.Field == SortByID && s.Desc {
		return a.ID > b.ID
	}
	return a.ID < b.ID
}

// Query describes one filtered listing request.
type Query struct {
	Keyword    string
	CategoryID *int64
	Town       string
	Offset     int
	Limit      int
	Sort       Sort
}

// Statement is a SQL text with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Predicates returns the active filter clauses. Empty filters are omitted, so
// a zero Query matches every facility.
func (q Query) Predicates() []Predicate {
	preds := make([]Predicate, 0, 3)
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		preds = append(preds, KeywordMatch{Keyword: kw})
	}
	if q.CategoryID != nil {
		preds = append(preds, CategoryEquals{ID: *q.CategoryID})
	}
	if town := strings.TrimSpace(q.Town); town != "" {
		preds = append(preds, TownEquals{Town: town})
	}
	return preds
}

// Match reports whether f satisfies every predicate.
func (q Query) Match(f models.Facility) bool {
	for _, p := range q.Predicates() {
		if !p.Match(f) {
			return false
		}
	}
	return true
}

// ValidatePage rejects a negative offset or a non-positive limit.
func (q Query) ValidatePage() error {
	if q.Offset < 0 {
		return apperr.Validation("offset must not be negative")
	}
	if q.Limit <= 0 {
		return apperr.Validation("limit must be positive")
	}
	return nil
}

func (q Query) where(args *Args) string {
	preds := q.Predicates()
	if len(preds) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(preds))
	for _, p := range preds {
		clauses = append(clauses, p.SQL(args))
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// List builds the paged listing statement.
func (q Query) List() (Statement, error) {
	if err := q.ValidatePage(); err != nil {
		return Statement{}, err
	}
	args := &Args{}
	sql := SelectClause + q.where(args) + q.Sort.sql()
	sql += " LIMIT " + args.Add(q.Limit) + " OFFSET " + args.Add(q.Offset)
	return Statement{SQL: sql, Args: args.Values()}, nil
}

// All builds the unpaged listing statement.
func (q Query) All() Statement {
	args := &Args{}
	sql := SelectClause + q.where(args) + q.Sort.sql()
	return Statement{SQL: sql, Args: args.Values()}
}

// Count builds the statement counting every match. It shares the WHERE clause
// with List and ignores Offset and Limit.
func (q Query) Count() Statement {
	args := &Args{}
	sql := "SELECT COUNT(*) FROM facilities f JOIN categories c ON c.id = f.category" + q.where(args)
	return Statement{SQL: sql, Args: args.Values()}
}

// OffsetForPage converts a 1-based page number into an offset. Pages below 1
// are treated as the first page; pages whose offset would overflow are clamped
// to the last representable page.
func OffsetForPage(page, size int) int {
	if page < 1 || size <= 0 {
		return 0
	}
	if last := math.MaxInt/size + 1; page > last {
		page = last
	}
	return (page - 1) * size
}

// TotalPages returns how many pages of size are needed for total rows.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
