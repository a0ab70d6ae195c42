// Package memory is an in-process FacilityStore and UserStore. It evaluates
// the same search predicates as the SQL store and backs local runs without a
// database as well as handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ecobuddy/locator/apperr"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/search"
	"github.com/ecobuddy/locator/status"
	"github.com/ecobuddy/locator/storage"
)

var (
	_ storage.FacilityStore = (*Store)(nil)
	_ storage.UserStore     = (*Store)(nil)
)

// Store keeps facilities, categories and users in maps guarded by one mutex.
type Store struct {
	mu         sync.RWMutex
	nextID     int64
	nextUserID int64
	categories map[int64]models.Category
	facilities map[int64]models.Facility
	users      map[string]models.User
}

// New returns a store preloaded with categories.
func New(categories []models.Category) *Store {
	s := &Store{
		categories: make(map[int64]models.Category, len(categories)),
		facilities: make(map[int64]models.Facility),
		users:      make(map[string]models.User),
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}
	return s
}

func (s *Store) filtered(q search.Query) []models.Facility {
	out := make([]models.Facility, 0, len(s.facilities))
	for _, f := range s.facilities {
		if q.Match(f) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return q.Sort.Less(out[i], out[j]) })
	return out
}

func (s *Store) Search(_ context.Context, q search.Query) (storage.Page, error) {
	if err := q.ValidatePage(); err != nil {
		return storage.Page{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.filtered(q)
	total := len(matches)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)
	return storage.Page{Facilities: matches[start:end], Total: total}, nil
}

func (s *Store) Count(_ context.Context, q search.Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(q)), nil
}

func (s *Store) All(_ context.Context, q search.Query) ([]models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filtered(q), nil
}

func (s *Store) Get(_ context.Context, id int64) (models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facilities[id]
	if !ok {
		return models.Facility{}, apperr.NotFound("facility %d not found", id)
	}
	return f, nil
}

func (s *Store) Create(_ context.Context, in models.FacilityInput) (models.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.categories[in.CategoryID]
	if !ok {
		return models.Facility{}, apperr.Validation("unknown category %d", in.CategoryID)
	}
	s.nextID++
	f := apply(models.Facility{ID: s.nextID, Contributor: in.Contributor, CreatedAt: time.Now().UTC()}, in, category)
	s.facilities[f.ID] = f
	return f, nil
}

// Update replaces the editable fields. The contributor recorded at creation
// is kept.
func (s *Store) Update(_ context.Context, id int64, in models.FacilityInput) (models.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.facilities[id]
	if !ok {
		return models.Facility{}, apperr.NotFound("facility %d not found", id)
	}
	category, ok := s.categories[in.CategoryID]
	if !ok {
		return models.Facility{}, apperr.Validation("unknown category %d", in.CategoryID)
	}
	f := apply(existing, in, category)
	s.facilities[id] = f
	return f, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.facilities[id]; !ok {
		return apperr.NotFound("facility %d not found", id)
	}
	delete(s.facilities, id)
	return nil
}

func (s *Store) UpdateComment(_ context.Context, id int64, comment status.Comment) error {
	if !comment.Valid() {
		return apperr.Validation("invalid status comment")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facilities[id]
	if !ok {
		return apperr.NotFound("facility %d not found", id)
	}
	f.Comments = &comment
	s.facilities[id] = f
	return nil
}

// Categories returns the categories referenced by at least one facility,
// ordered by name.
func (s *Store) Categories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	used := make(map[int64]struct{})
	for _, f := range s.facilities {
		used[f.CategoryID] = struct{}{}
	}
	out := make([]models.Category, 0, len(used))
	for id := range used {
		if c, ok := s.categories[id]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Towns returns distinct non-empty towns in ascending order.
func (s *Store) Towns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, f := range s.facilities {
		if strings.TrimSpace(f.Town) != "" {
			seen[f.Town] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for town := range seen {
		out = append(out, town)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return models.User{}, apperr.NotFound("user %q not found", username)
	}
	return u, nil
}

// EnsureUser creates the account if the username is free. Existing accounts
// are left untouched.
func (s *Store) EnsureUser(_ context.Context, username, passwordHash string, kind models.UserType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return nil
	}
	s.nextUserID++
	s.users[username] = models.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		Type:         kind,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

func apply(f models.Facility, in models.FacilityInput, category models.Category) models.Facility {
	f.Title = in.Title
	f.CategoryID = category.ID
	f.CategoryName = category.Name
	f.Description = in.Description
	f.HouseNumber = in.HouseNumber
	f.StreetName = in.StreetName
	f.Town = in.Town
	f.County = in.County
	f.Postcode = in.Postcode
	f.Lat = in.Lat
	f.Lng = in.Lng
	return f
}
