package mapsync

import (
	"math"
	"sync"

	"github.com/ecobuddy/locator/internal/coords"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/status"
)

// Pin is a located facility ready for the map.
type Pin struct {
	FacilityID int64   `json:"facility_id"`
	Title      string  `json:"title"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// PinFor returns the map pin of f, or false when f has no usable coordinates.
func PinFor(f models.Facility) (Pin, bool) {
	lat, ok := coords.Finite(f.Lat)
	if !ok || math.Abs(lat) > 90 {
		return Pin{}, false
	}
	lng, ok := coords.Finite(f.Lng)
	if !ok || math.Abs(lng) > 180 {
		return Pin{}, false
	}
	return Pin{FacilityID: f.ID, Title: f.Title, Lat: lat, Lng: lng}, true
}

// Collection is the client-side copy of the loaded facilities.
type Collection struct {
	mu    sync.RWMutex
	order []int64
	byID  map[int64]models.Facility
}

func NewCollection(facilities []models.Facility) *Collection {
	c := &Collection{}
	c.Load(facilities)
	return c
}

// Load replaces the contents, keeping the given order.
func (c *Collection) Load(facilities []models.Facility) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = make([]int64, 0, len(facilities))
	c.byID = make(map[int64]models.Facility, len(facilities))
	for _, f := range facilities {
		if _, dup := c.byID[f.ID]; !dup {
			c.order = append(c.order, f.ID)
		}
		c.byID[f.ID] = f
	}
}

func (c *Collection) Get(id int64) (models.Facility, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.byID[id]
	return f, ok
}

func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Pins lists the pins of all located facilities in load order.
func (c *Collection) Pins() []Pin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pins := make([]Pin, 0, len(c.order))
	for _, id := range c.order {
		if p, ok := PinFor(c.byID[id]); ok {
			pins = append(pins, p)
		}
	}
	return pins
}

// ApplyComment records a new status for a facility. It reports false when the
// facility is not loaded.
func (c *Collection) ApplyComment(id int64, comment status.Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.byID[id]
	if !ok {
		return false
	}
	f.Comments = &comment
	c.byID[id] = f
	return true
}
