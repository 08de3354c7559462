package state

import (
	"sync"

	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/status"
)

// CityCache owns CityCacheState. It is only mutated through Dispatch and the
// Clear methods; reads return copies.
type CityCache struct {
	mu    sync.RWMutex
	state CityCacheState
	gens  map[Key]uint64
	notifier
}

// NewCityCache returns a cache in its initial state.
func NewCityCache() *CityCache {
	c := &CityCache{}
	c.init()
	return c
}

func (c *CityCache) init() {
	c.state = InitialState()
	c.gens = make(map[Key]uint64)
}

// Dispatch applies a lifecycle event. Pending always applies and bumps the
// key's generation. Fulfilled and Rejected apply only when their Generation
// matches the key's current one, so completions of cleared or superseded
// requests are dropped.
func (c *CityCache) Dispatch(ev Event) Result {
	c.mu.Lock()
	key := ev.Key()
	if ev.Phase == Pending {
		c.gens[key]++
		gen := c.gens[key]
		c.reduce(ev)
		c.mu.Unlock()
		c.broadcast()
		return Result{Applied: true, Generation: gen}
	}

	gen := c.gens[key]
	if ev.Generation != gen {
		c.mu.Unlock()
		return Result{Applied: false, Generation: gen}
	}
	c.reduce(ev)
	c.mu.Unlock()
	c.broadcast()
	return Result{Applied: true, Generation: gen}
}

// reduce applies ev to the state. Caller holds mu.
func (c *CityCache) reduce(ev Event) {
	switch ev.Query {
	case QueryAllCities:
		c.state.AllCities = reduceList(c.state.AllCities, ev.Phase, citiesPayload(ev.Cities))
	case QueryCity:
		entry := c.entry(ev.CityID)
		entry.City = reduceItem(entry.City, ev.Phase, ev.City)
		c.state.SelectedCity[ev.CityID] = entry
	case QueryCityPlaces:
		entry := c.entry(ev.CityID)
		entry.Place = reduceList(entry.Place, ev.Phase, placesPayload(ev.Places))
		c.state.SelectedCity[ev.CityID] = entry
	}
}

// entry returns the per-id record, creating it idle when absent.
func (c *CityCache) entry(id CityID) SelectedCityEntry {
	entry, ok := c.state.SelectedCity[id]
	if !ok {
		return DefaultCityEntry()
	}
	return entry
}

func reduceList[T any](e ListEntry[T], phase Phase, payload []T) ListEntry[T] {
	switch phase {
	case Pending:
		return ListEntry[T]{Status: status.Loading, List: []T{}}
	case Fulfilled:
		if payload == nil {
			payload = []T{}
		}
		return ListEntry[T]{Status: status.Succeeded, List: payload}
	case Rejected:
		return ListEntry[T]{Status: status.Failed, List: []T{}}
	}
	return e
}

func reduceItem[T any](e ItemEntry[T], phase Phase, payload *T) ItemEntry[T] {
	switch phase {
	case Pending:
		return ItemEntry[T]{Status: status.Loading}
	case Fulfilled:
		var item *T
		if payload != nil {
			v := *payload
			item = &v
		}
		return ItemEntry[T]{Status: status.Succeeded, Item: item}
	case Rejected:
		return ItemEntry[T]{Status: status.Failed}
	}
	return e
}

func citiesPayload(r *cityapi.CitiesResult) []cityapi.City {
	if r == nil || len(r.AllCities) == 0 {
		return nil
	}
	out := make([]cityapi.City, len(r.AllCities))
	copy(out, r.AllCities)
	return out
}

func placesPayload(r *cityapi.PlacesResult) []cityapi.Place {
	if r == nil || len(r.AllPlaces) == 0 {
		return nil
	}
	out := make([]cityapi.Place, len(r.AllPlaces))
	copy(out, r.AllPlaces)
	return out
}

// ClearAllCities resets the all-cities entry to idle and invalidates any
// request in flight for it.
func (c *CityCache) ClearAllCities() {
	c.mu.Lock()
	c.state.AllCities = idleList[cityapi.City]()
	c.gens[KeyFor(QueryAllCities, "")]++
	c.mu.Unlock()
	c.broadcast()
}

// ClearCity resets a city's detail entry to idle. It reports false when the
// id has no record.
func (c *CityCache) ClearCity(id CityID) bool {
	c.mu.Lock()
	entry, ok := c.state.SelectedCity[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	entry.City = idleItem[cityapi.City]()
	c.state.SelectedCity[id] = entry
	c.gens[KeyFor(QueryCity, id)]++
	c.mu.Unlock()
	c.broadcast()
	return true
}

// ClearCityPlaces resets a city's places entry to idle. It reports false when
// the id has no record.
func (c *CityCache) ClearCityPlaces(id CityID) bool {
	c.mu.Lock()
	entry, ok := c.state.SelectedCity[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	entry.Place = idleList[cityapi.Place]()
	c.state.SelectedCity[id] = entry
	c.gens[KeyFor(QueryCityPlaces, id)]++
	c.mu.Unlock()
	c.broadcast()
	return true
}

// Snapshot returns a deep copy of the whole state.
func (c *CityCache) Snapshot() CityCacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// AllCities returns a copy of the all-cities entry.
func (c *CityCache) AllCities() ListEntry[cityapi.City] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.AllCities.clone()
}

// SelectedCity returns a copy of the per-id record and whether it exists.
func (c *CityCache) SelectedCity(id CityID) (SelectedCityEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.state.SelectedCity[id]
	if !ok {
		return SelectedCityEntry{}, false
	}
	return entry.clone(), true
}

// StatusOf returns the lifecycle status stored for a key, idle when unknown.
func (c *CityCache) StatusOf(q Query, id CityID) status.RequestStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch q {
	case QueryAllCities:
		return c.state.AllCities.Status
	case QueryCity:
		if entry, ok := c.state.SelectedCity[id]; ok {
			return entry.City.Status
		}
	case QueryCityPlaces:
		if entry, ok := c.state.SelectedCity[id]; ok {
			return entry.Place.Status
		}
	}
	return status.Idle
}

// Generation returns the current generation of a key.
func (c *CityCache) Generation(key Key) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[key]
}
