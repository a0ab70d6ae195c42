// Package status holds the closed set of status comments visitors may attach
// to a facility. The server validates against it and clients render their
// option lists from it.
package status

import "strings"

// Comment is one of the allowed status annotations.
type Comment string

const (
	BinFull         Comment = "Bin is full"
	NotWorking      Comment = "Not working"
	OftenBusy       Comment = "Often busy"
	ChargerDown     Comment = "One charger not working"
	PlentyAvailable Comment = "Always lots available"
	GetAround       Comment = "Great way to get around"
	BringCable      Comment = "Great to charge your phone but bring a cable"
)

// Placeholder is shown when a facility carries no status.
const Placeholder = "No status"

var all = []Comment{
	BinFull,
	NotWorking,
	OftenBusy,
	ChargerDown,
	PlentyAvailable,
	GetAround,
	BringCable,
}

// All returns the allowed comments in display order.
func All() []Comment {
	out := make([]Comment, len(all))
	copy(out, all)
	return out
}

// Parse returns the comment matching value exactly. Surrounding whitespace is
// ignored, case is not.
func Parse(value string) (Comment, bool) {
	trimmed := strings.TrimSpace(value)
	for _, c := range all {
		if string(c) == trimmed {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c belongs to the allowed set.
func (c Comment) Valid() bool {
	_, ok := Parse(string(c))
	return ok && strings.TrimSpace(string(c)) == string(c)
}

func (c Comment) String() string { return string(c) }

// Label renders an optional comment for display.
func Label(c *Comment) string {
	if c == nil || *c == "" {
		return Placeholder
	}
	return string(*c)
}
