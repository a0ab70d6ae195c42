package coords

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNotNumeric  = errors.New("coordinate is not numeric")
	ErrOutOfRange  = errors.New("coordinate is out of range")
	ErrUnpairedLoc = errors.New("latitude and longitude must be given together")
)

func parse(value string, limit float64) (float64, error) {
	trimmed := strings.TrimSpace(value)
	// Accept a decimal comma as typed on some keyboards.
	if !strings.Contains(trimmed, ".") {
		trimmed = strings.Replace(trimmed, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotNumeric
	}
	if v < -limit || v > limit {
		return 0, ErrOutOfRange
	}
	return v, nil
}

// ParseLatitude parses a latitude in degrees.
func ParseLatitude(value string) (float64, error) {
	return parse(value, 90)
}

// ParseLongitude parses a longitude in degrees.
func ParseLongitude(value string) (float64, error) {
	return parse(value, 180)
}

// ParseOptionalPair parses a lat/lng pair where both may be blank. A blank
// pair yields nil pointers; a half-filled pair is an error.
func ParseOptionalPair(lat, lng string) (*float64, *float64, error) {
	latBlank := strings.TrimSpace(lat) == ""
	lngBlank := strings.TrimSpace(lng) == ""
	if latBlank && lngBlank {
		return nil, nil, nil
	}
	if latBlank || lngBlank {
		return nil, nil, ErrUnpairedLoc
	}
	la, err := ParseLatitude(lat)
	if err != nil {
		return nil, nil, err
	}
	ln, err := ParseLongitude(lng)
	if err != nil {
		return nil, nil, err
	}
	return &la, &ln, nil
}

// Finite dereferences an optional coordinate. Missing, NaN and infinite
// values report false.
func Finite(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}
