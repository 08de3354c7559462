// Package selector pairs cache entries with their derived status flags and
// binds the load and clear actions for one resource.
package selector

import (
	"context"

	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/loader"
	"github.com/five82/cityguide/internal/state"
	"github.com/five82/cityguide/internal/status"
)

// ListState is a list entry together with its flags.
type ListState[T any] struct {
	state.ListEntry[T]
	status.Flags
}

// ItemState is an item entry together with its flags.
type ItemState[T any] struct {
	state.ItemEntry[T]
	status.Flags
}

// Actions are the bound write entry points for one resource.
type Actions struct {
	Load  func(ctx context.Context)
	Clear func()
}

// AllCitiesView is the accessor for the city list.
type AllCitiesView struct {
	State   ListState[cityapi.City]
	Actions Actions
}

// CityView is the accessor for one city's detail.
type CityView struct {
	ID      state.CityID
	State   ItemState[cityapi.City]
	Actions Actions
}

// PlacesView is the accessor for one city's places.
type PlacesView struct {
	ID      state.CityID
	Key     string
	State   ListState[cityapi.Place]
	Actions Actions
}

// AllCities reads the city list.
func AllCities(l *loader.Loader) AllCitiesView {
	entry := l.Cache().AllCities()
	return AllCitiesView{
		State: ListState[cityapi.City]{ListEntry: entry, Flags: entry.Flags()},
		Actions: Actions{
			Load:  l.LoadAllCities,
			Clear: l.ClearAllCities,
		},
	}
}

// SelectedCity reads the detail entry for id. Unknown ids read as idle.
func SelectedCity(l *loader.Loader, id state.CityID) CityView {
	entry := selected(l, id).City
	return CityView{
		ID:    id,
		State: ItemState[cityapi.City]{ItemEntry: entry, Flags: entry.Flags()},
		Actions: Actions{
			Load:  func(ctx context.Context) { l.LoadCityByID(ctx, id) },
			Clear: func() { l.ClearCity(id) },
		},
	}
}

// SelectedCityPlaces reads the places entry for id. key is the lookup key
// passed to the query.
func SelectedCityPlaces(l *loader.Loader, id state.CityID, key string) PlacesView {
	entry := selected(l, id).Place
	return PlacesView{
		ID:    id,
		Key:   key,
		State: ListState[cityapi.Place]{ListEntry: entry, Flags: entry.Flags()},
		Actions: Actions{
			Load:  func(ctx context.Context) { l.LoadCityPlaces(ctx, id, key) },
			Clear: func() { l.ClearCityPlaces(id) },
		},
	}
}

func selected(l *loader.Loader, id state.CityID) state.SelectedCityEntry {
	entry, ok := l.Cache().SelectedCity(id)
	if !ok {
		return state.DefaultCityEntry()
	}
	return entry
}
