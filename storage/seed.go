package storage

import (
	"context"

	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/search"
)

// SeedCategories is the starter category list installed on an empty store.
var SeedCategories = []models.Category{
	{ID: 1, Name: "Recycling"},
	{ID: 2, Name: "EV Charger"},
	{ID: 3, Name: "Bike Share"},
	{ID: 4, Name: "Phone Charging"},
}

func coord(v float64) *float64 { return &v }

// SeedFacilities is a small demo directory used by local runs and tests.
var SeedFacilities = []models.FacilityInput{
	{
		Title: "Peel Park Recycling Point", CategoryID: 1,
		Description: "Glass, cans and paper banks next to the car park",
		HouseNumber: "1", StreetName: "The Crescent", Town: "Salford", County: "Greater Manchester",
		Postcode: "M5 4WU", Lat: coord(53.4875), Lng: coord(-2.2710), Contributor: "system",
	},
	{
		Title: "MediaCity Chargers", CategoryID: 2,
		Description: "Four rapid chargers on level 2",
		StreetName: "Blue Street", Town: "Salford", County: "Greater Manchester",
		Postcode: "M50 2UW", Lat: coord(53.4721), Lng: coord(-2.2985), Contributor: "system",
	},
	{
		Title: "Piccadilly Bike Dock", CategoryID: 3,
		Description: "Twenty docking bays outside the station",
		StreetName: "London Road", Town: "Manchester", County: "Greater Manchester",
		Postcode: "M1 2PB", Lat: coord(53.4774), Lng: coord(-2.2309), Contributor: "system",
	},
	{
		Title: "Library Charging Kiosk", CategoryID: 4,
		Description: "USB lockers in the main foyer",
		HouseNumber: "12", StreetName: "St Peter's Square", Town: "Manchester", County: "Greater Manchester",
		Postcode: "M2 5PD", Contributor: "system",
	},
	{
		Title: "Eccles Bottle Bank", CategoryID: 1,
		Description: "Mixed glass recycling behind the supermarket",
		StreetName: "Church Street", Town: "Eccles", County: "Greater Manchester",
		Postcode: "M30 0DF", Lat: coord(53.4831), Lng: coord(-2.3345), Contributor: "system",
	},
}

// SeedDirectory installs SeedFacilities when the store holds no facilities.
// It returns how many rows were created.
func SeedDirectory(ctx context.Context, st FacilityStore) (int, error) {
	existing, err := st.Count(ctx, search.Query{})
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}
	for i, in := range SeedFacilities {
		if _, err := st.Create(ctx, in); err != nil {
			return i, err
		}
	}
	return len(SeedFacilities), nil
}
