package state

import (
	"fmt"

	"github.com/five82/cityguide/internal/cityapi"
)

// Query identifies one of the three cached read queries.
type Query int

const (
	QueryAllCities Query = iota
	QueryCity
	QueryCityPlaces
)

func (q Query) String() string {
	switch q {
	case QueryAllCities:
		return "all_cities"
	case QueryCity:
		return "city"
	case QueryCityPlaces:
		return "city_places"
	default:
		return fmt.Sprintf("query(%d)", int(q))
	}
}

// Phase is the lifecycle step an event reports.
type Phase int

const (
	Pending Phase = iota
	Fulfilled
	Rejected
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Key is the dedup and generation scope of a query.
type Key string

// KeyFor returns the lifecycle key for q. id is ignored for QueryAllCities.
func KeyFor(q Query, id CityID) Key {
	switch q {
	case QueryCity:
		return Key("city:" + id)
	case QueryCityPlaces:
		return Key("places:" + id)
	default:
		return "all"
	}
}

// Event is a lifecycle event for one query. Only the payload field matching
// Query is read on Fulfilled; Err is informational on Rejected.
type Event struct {
	Query      Query
	Phase      Phase
	CityID     CityID
	Generation uint64

	Cities *cityapi.CitiesResult
	City   *cityapi.City
	Places *cityapi.PlacesResult
	Err    error
}

// Key returns the event's lifecycle key.
func (e Event) Key() Key {
	return KeyFor(e.Query, e.CityID)
}

// Result reports what Dispatch did with an event.
type Result struct {
	// Applied is false when a terminal event carried a stale generation.
	Applied bool
	// Generation is the key's generation after the event. For Pending it is
	// the tag the matching terminal event must carry.
	Generation uint64
}
