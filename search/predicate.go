package search

import (
	"fmt"
	"strings"

	"github.com/ecobuddy/locator/models"
)

// Predicate is one filter clause. It renders itself as SQL against the
// facilities (f) / categories (c) join and evaluates the same condition in
// process, so every store agrees on what matches.
type Predicate interface {
	SQL(args *Args) string
	Match(f models.Facility) bool
}

// Args accumulates positional bind values and hands out $n placeholders.
type Args struct {
	values []any
}

// Add appends v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

// Values returns the collected bind values.
func (a *Args) Values() []any {
	return a.values
}

// KeywordMatch matches a case-insensitive substring of the title, the
// category name or the description.
type KeywordMatch struct {
	Keyword string
}

func (k KeywordMatch) SQL(args *Args) string {
	p := args.Add("%" + escapeLike(k.Keyword) + "%")
	return fmt.Sprintf("(f.title ILIKE %[1]s OR c.name ILIKE %[1]s OR f.description ILIKE %[1]s)", p)
}

func (k KeywordMatch) Match(f models.Facility) bool {
	needle := strings.ToLower(k.Keyword)
	return strings.Contains(strings.ToLower(f.Title), needle) ||
		strings.Contains(strings.ToLower(f.CategoryName), needle) ||
		strings.Contains(strings.ToLower(f.Description), needle)
}

// CategoryEquals restricts results to one category id.
type CategoryEquals struct {
	ID int64
}

func (c CategoryEquals) SQL(args *Args) string {
	return "f.category = " + args.Add(c.ID)
}

func (c CategoryEquals) Match(f models.Facility) bool {
	return f.CategoryID == c.ID
}

// TownEquals restricts results to an exact town value.
type TownEquals struct {
	Town string
}

func (t TownEquals) SQL(args *Args) string {
	return "f.town = " + args.Add(t.Town)
}

func (t TownEquals) Match(f models.Facility) bool {
	return f.Town == t.Town
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralises LIKE metacharacters. Postgres uses backslash as the
// default LIKE escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
