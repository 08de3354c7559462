package state

import (
	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/status"
)

// CityID is the cache key for per-city records.
type CityID = string

// ListEntry is a collection resource. List is only meaningful when Status is
// succeeded.
type ListEntry[T any] struct {
	Status status.RequestStatus
	List   []T
}

// Flags derives UI flags for the entry.
func (e ListEntry[T]) Flags() status.Flags {
	return status.DeriveList(e.Status, e.List)
}

func (e ListEntry[T]) clone() ListEntry[T] {
	out := ListEntry[T]{Status: e.Status}
	if len(e.List) > 0 {
		out.List = make([]T, len(e.List))
		copy(out.List, e.List)
	} else {
		out.List = []T{}
	}
	return out
}

// ItemEntry is a single resource. Item is nil unless Status is succeeded, and
// may be nil even then when the upstream query found nothing.
type ItemEntry[T any] struct {
	Status status.RequestStatus
	Item   *T
}

// Flags derives UI flags for the entry.
func (e ItemEntry[T]) Flags() status.Flags {
	return status.DeriveItem(e.Status, e.Item)
}

func (e ItemEntry[T]) clone() ItemEntry[T] {
	out := ItemEntry[T]{Status: e.Status}
	if e.Item != nil {
		item := *e.Item
		out.Item = &item
	}
	return out
}

// SelectedCityEntry is the per-id record. City and Place age independently.
type SelectedCityEntry struct {
	City  ItemEntry[cityapi.City]
	Place ListEntry[cityapi.Place]
}

func (e SelectedCityEntry) clone() SelectedCityEntry {
	return SelectedCityEntry{City: e.City.clone(), Place: e.Place.clone()}
}

// CityCacheState is the root of the cache.
type CityCacheState struct {
	AllCities    ListEntry[cityapi.City]
	SelectedCity map[CityID]SelectedCityEntry
}

// InitialState is the state of a freshly constructed cache.
func InitialState() CityCacheState {
	return CityCacheState{
		AllCities:    idleList[cityapi.City](),
		SelectedCity: make(map[CityID]SelectedCityEntry),
	}
}

func (s CityCacheState) clone() CityCacheState {
	out := CityCacheState{
		AllCities:    s.AllCities.clone(),
		SelectedCity: make(map[CityID]SelectedCityEntry, len(s.SelectedCity)),
	}
	for id, entry := range s.SelectedCity {
		out.SelectedCity[id] = entry.clone()
	}
	return out
}

func idleList[T any]() ListEntry[T] {
	return ListEntry[T]{Status: status.Idle, List: []T{}}
}

func idleItem[T any]() ItemEntry[T] {
	return ItemEntry[T]{Status: status.Idle}
}

// DefaultCityEntry is returned for ids the cache has never seen.
func DefaultCityEntry() SelectedCityEntry {
	return SelectedCityEntry{
		City:  idleItem[cityapi.City](),
		Place: idleList[cityapi.Place](),
	}
}
