// Package storage declares the persistence contracts for facilities and user
// accounts. Implementations live in the postgres and memory subpackages.
package storage

import (
	"context"

	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/search"
	"github.com/ecobuddy/locator/status"
)

// Page is one slice of a filtered listing plus the size of the whole
// filtered set.
type Page struct {
	Facilities []models.Facility
	Total      int
}

// FacilityStore persists facilities and answers filtered listings.
//
// Errors wrap the apperr kinds: ErrNotFound for unknown ids, ErrValidation
// for constraint violations and ErrStore for anything transient.
type FacilityStore interface {
	Search(ctx context.Context, q search.Query) (Page, error)
	Count(ctx context.Context, q search.Query) (int, error)
	All(ctx context.Context, q search.Query) ([]models.Facility, error)
	Get(ctx context.Context, id int64) (models.Facility, error)
	Create(ctx context.Context, in models.FacilityInput) (models.Facility, error)
	Update(ctx context.Context, id int64, in models.FacilityInput) (models.Facility, error)
	Delete(ctx context.Context, id int64) error
	UpdateComment(ctx context.Context, id int64, comment status.Comment) error
	Categories(ctx context.Context) ([]models.Category, error)
	Towns(ctx context.Context) ([]string, error)
}

// UserStore looks up and provisions accounts.
type UserStore interface {
	UserByUsername(ctx context.Context, username string) (models.User, error)
	EnsureUser(ctx context.Context, username, passwordHash string, kind models.UserType) error
}
