package cityapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// City mirrors the GraphQL City type. List queries only populate ID, Key,
// Name and NativeName.
type City struct {
	ID         string `json:"id"`
	Key        string `json:"key"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
	Currency   string `json:"currency,omitempty"`
	Language   string `json:"language,omitempty"`
}

// DisplayName returns the native name when requested and available.
func (c City) DisplayName(native bool) string {
	if native && strings.TrimSpace(c.NativeName) != "" {
		return c.NativeName
	}
	return c.Name
}

// Place is a point of interest attached to a city by its lookup key.
type Place struct {
	Key      string          `json:"key"`
	Metadata PlaceMetadata   `json:"-"`
	Raw      json.RawMessage `json:"place"`
}

// PlaceMetadata is the decoded JSON payload of a place.
type PlaceMetadata struct {
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

// Validate checks the fields the detail view depends on.
func (m PlaceMetadata) Validate() error {
	if strings.TrimSpace(m.Type) == "" {
		return errors.New("place type is empty")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("place name is empty")
	}
	return m.Coordinates.Validate()
}

// Coordinates is a latitude/longitude pair encoded as a two element array.
type Coordinates struct {
	Lat float64
	Lng float64
}

// ErrInvalidCoordinates is returned for out of range latitude or longitude.
var ErrInvalidCoordinates = errors.New("invalid latitude or longitude values")

// Validate reports ErrInvalidCoordinates unless |lat| <= 90 and |lng| <= 180.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

// UnmarshalJSON decodes a [lat, lng] tuple.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode coordinates: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode coordinates: want 2 values, got %d", len(pair))
	}
	c.Lat, c.Lng = pair[0], pair[1]
	return nil
}

// MarshalJSON encodes the [lat, lng] tuple.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lng})
}

// CitiesResult is the payload of the GetCities query.
type CitiesResult struct {
	AllCities []City
}

// PlacesResult is the payload of the getCityPlace query.
type PlacesResult struct {
	AllPlaces []Place
}

type citiesData struct {
	AllCities []*City `json:"allCities"`
}

type cityData struct {
	City *City `json:"City"`
}

type placesData struct {
	AllPlaces []*Place `json:"allPlaces"`
}

// decodeMetadata fills Metadata from Raw. Malformed payloads leave Metadata
// zero so Validate rejects them at display time.
func (p *Place) decodeMetadata() {
	if len(p.Raw) == 0 {
		return
	}
	var meta PlaceMetadata
	if err := json.Unmarshal(p.Raw, &meta); err != nil {
		return
	}
	p.Metadata = meta
}
