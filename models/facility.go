package models

import (
	"strings"
	"time"

	"github.com/ecobuddy/locator/status"
)

// Facility is a community resource shown in the directory and on the map.
// Coordinates are optional; facilities without them are listed but not pinned.
type Facility struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	CategoryID   int64           `json:"category"`
	CategoryName string          `json:"category_name"`
	Description  string          `json:"description"`
	HouseNumber  string          `json:"house_number"`
	StreetName   string          `json:"street_name"`
	Town         string          `json:"town"`
	County       string          `json:"county"`
	Postcode     string          `json:"postcode"`
	Lat          *float64        `json:"lat"`
	Lng          *float64        `json:"lng"`
	Contributor  string          `json:"contributor"`
	Comments     *status.Comment `json:"comments"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Located reports whether the facility carries both coordinates.
func (f Facility) Located() bool {
	return f.Lat != nil && f.Lng != nil
}

// Address joins the non-empty address parts in postal order.
func (f Facility) Address() string {
	street := strings.TrimSpace(strings.TrimSpace(f.HouseNumber) + " " + strings.TrimSpace(f.StreetName))
	parts := make([]string, 0, 4)
	for _, part := range []string{street, f.Town, f.County, f.Postcode} {
		if p := strings.TrimSpace(part); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Category groups facilities by kind, e.g. "Recycling" or "EV charger".
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FacilityInput carries the admin-editable fields of a facility. Contributor
// is only read on create; updates keep the original attribution.
type FacilityInput struct {
	Title       string
	CategoryID  int64
	Description string
	HouseNumber string
	StreetName  string
	Town        string
	County      string
	Postcode    string
	Lat         *float64
	Lng         *float64
	Contributor string
}
