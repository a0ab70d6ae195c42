package mapsync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ecobuddy/locator/client"
	"github.com/ecobuddy/locator/models"
	"github.com/ecobuddy/locator/status"
)

// Popup is the content of a pin's info window.
type Popup struct {
	Title       string
	Category    string
	Description string
	Status      string
	Address     string
}

func PopupFor(f models.Facility) Popup {
	return Popup{
		Title:       f.Title,
		Category:    f.CategoryName,
		Description: f.Description,
		Status:      status.Label(f.Comments),
		Address:     f.Address(),
	}
}

// MapView is implemented by the map widget.
type MapView interface {
	FlyTo(lat, lng float64)
	SetPinHighlighted(facilityID int64, on bool)
	OpenPopup(facilityID int64, p Popup)
}

// TableView is implemented by the facility table.
type TableView interface {
	SetRowHighlighted(facilityID int64, on bool)
	ScrollIntoView(facilityID int64)
}

// Sync turns pin and row selections into a single highlight event.
type Sync struct {
	bus    *Bus
	unsubs []func()
}

func NewSync(bus *Bus) *Sync {
	s := &Sync{bus: bus}
	for _, topic := range []Topic{TopicPinSelected, TopicRowSelected} {
		s.unsubs = append(s.unsubs, bus.Subscribe(topic, s.relay))
	}
	return s
}

func (s *Sync) relay(e Event) {
	s.bus.Publish(Event{Topic: TopicHighlighted, FacilityID: e.FacilityID, Source: e.Topic})
}

// SelectPin is called by the map when a pin is clicked.
func (s *Sync) SelectPin(id int64) {
	s.bus.Publish(Event{Topic: TopicPinSelected, FacilityID: id})
}

// SelectRow is called by the table when a row is clicked.
func (s *Sync) SelectRow(id int64) {
	s.bus.Publish(Event{Topic: TopicRowSelected, FacilityID: id})
}

func (s *Sync) Close() {
	for _, u := range s.unsubs {
		u()
	}
	s.unsubs = nil
}

// MapBinding drives a MapView from bus events. At most one pin is highlighted.
type MapBinding struct {
	view        MapView
	coll        *Collection
	highlighted int64
	popup       int64
	unsubs      []func()
}

func BindMap(bus *Bus, coll *Collection, view MapView) *MapBinding {
	b := &MapBinding{view: view, coll: coll}
	b.unsubs = []func(){
		bus.Subscribe(TopicHighlighted, b.onHighlight),
		bus.Subscribe(TopicCommentUpdated, b.onComment),
	}
	return b
}

func (b *MapBinding) onHighlight(e Event) {
	f, ok := b.coll.Get(e.FacilityID)
	if !ok {
		b.clearPin()
		return
	}
	pin, ok := PinFor(f)
	if !ok {
		log.Debug().Int64("facility_id", f.ID).Msg("facility has no coordinates, map not moved")
		b.clearPin()
		return
	}

	b.view.FlyTo(pin.Lat, pin.Lng)
	if b.highlighted != f.ID {
		b.clearPin()
	}
	b.view.SetPinHighlighted(f.ID, true)
	b.highlighted = f.ID

	if e.Source == TopicPinSelected {
		b.view.OpenPopup(f.ID, PopupFor(f))
		b.popup = f.ID
	}
}

// clearPin drops the current pin highlight so the map never points at a
// facility other than the selected one.
func (b *MapBinding) clearPin() {
	if b.highlighted != 0 {
		b.view.SetPinHighlighted(b.highlighted, false)
		b.highlighted = 0
	}
}

// onComment refreshes an open popup so it shows the new status.
func (b *MapBinding) onComment(e Event) {
	if b.popup == 0 || b.popup != e.FacilityID {
		return
	}
	if f, ok := b.coll.Get(e.FacilityID); ok {
		b.view.OpenPopup(f.ID, PopupFor(f))
	}
}

// Highlighted returns the id of the highlighted pin, or 0.
func (b *MapBinding) Highlighted() int64 { return b.highlighted }

func (b *MapBinding) Close() {
	for _, u := range b.unsubs {
		u()
	}
	b.unsubs = nil
}

// TableBinding drives a TableView from bus events. At most one row is
// highlighted.
type TableBinding struct {
	view        TableView
	highlighted int64
	unsub       func()
}

func BindTable(bus *Bus, view TableView) *TableBinding {
	b := &TableBinding{view: view}
	b.unsub = bus.Subscribe(TopicHighlighted, b.onHighlight)
	return b
}

func (b *TableBinding) onHighlight(e Event) {
	if b.highlighted != 0 && b.highlighted != e.FacilityID {
		b.view.SetRowHighlighted(b.highlighted, false)
	}
	b.view.SetRowHighlighted(e.FacilityID, true)
	b.highlighted = e.FacilityID
	if e.Source == TopicPinSelected {
		b.view.ScrollIntoView(e.FacilityID)
	}
}

func (b *TableBinding) Highlighted() int64 { return b.highlighted }

func (b *TableBinding) Close() { b.unsub() }

// CommentUpdater persists a status comment. *client.Client satisfies it.
type CommentUpdater interface {
	UpdateComment(ctx context.Context, id int64, comment status.Comment) (client.CommentResult, error)
}

// UpdateComment saves the comment and, once the server accepts it, applies it
// to the collection and announces it on the bus.
func UpdateComment(ctx context.Context, u CommentUpdater, bus *Bus, coll *Collection, id int64, comment status.Comment) error {
	res, err := u.UpdateComment(ctx, id, comment)
	if err != nil {
		return fmt.Errorf("update comment for facility %d: %w", id, err)
	}
	coll.ApplyComment(res.FacilityID, res.Comment)
	c := res.Comment
	bus.Publish(Event{Topic: TopicCommentUpdated, FacilityID: res.FacilityID, Comment: &c})
	return nil
}
