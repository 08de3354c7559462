package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/metrics"
	"github.com/five82/cityguide/internal/state"
	"github.com/five82/cityguide/internal/status"
)

type fakeAPI struct {
	cityCalls   atomic.Int32
	citiesCalls atomic.Int32
	placesCalls atomic.Int32

	// gate, when set, blocks every call until closed.
	gate chan struct{}
	// delay is applied before returning.
	delay time.Duration

	cities    *cityapi.CitiesResult
	citiesErr error
	city      *cityapi.City
	cityErr   error
	places    *cityapi.PlacesResult
	placesErr error
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return nil
}

func (f *fakeAPI) FetchAllCities(ctx context.Context) (*cityapi.CitiesResult, error) {
	f.citiesCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.cities, f.citiesErr
}

func (f *fakeAPI) FetchCity(ctx context.Context, id string) (*cityapi.City, error) {
	f.cityCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.city, f.cityErr
}

func (f *fakeAPI) FetchCityPlaces(ctx context.Context, id, key string) (*cityapi.PlacesResult, error) {
	f.placesCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.places, f.placesErr
}

func newLoader(t *testing.T, api cityapi.Querier) (*Loader, *metrics.Loader) {
	t.Helper()
	m := metrics.NewLoader()
	l, err := New(Options{Cache: state.NewCityCache(), API: api, Metrics: m})
	require.NoError(t, err)
	return l, m
}

// counterValue sums every series of the named counter.
func counterValue(t *testing.T, m *metrics.Loader, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

var paris = cityapi.City{ID: "1", Key: "paris", Name: "Paris"}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{API: &fakeAPI{}})
	assert.Error(t, err)
	_, err = New(Options{Cache: state.NewCityCache()})
	assert.Error(t, err)
}

func TestLoadAllCities_ConcurrentCallsShareOneRequest(t *testing.T) {
	api := &fakeAPI{
		gate:   make(chan struct{}),
		cities: &cityapi.CitiesResult{AllCities: []cityapi.City{paris}},
	}
	l, m := newLoader(t, api)

	var wg sync.WaitGroup
	load := func() {
		defer wg.Done()
		l.LoadAllCities(context.Background())
	}
	wg.Add(1)
	go load()
	require.Eventually(t, func() bool { return api.citiesCalls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, status.Loading, l.Cache().AllCities().Status)

	wg.Add(2)
	go load()
	go load()
	time.Sleep(20 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	assert.Equal(t, int32(1), api.citiesCalls.Load())
	entry := l.Cache().AllCities()
	assert.Equal(t, status.Succeeded, entry.Status)
	assert.Equal(t, []cityapi.City{paris}, entry.List)
	assert.Equal(t, 2.0, counterValue(t, m, "cityguide_loader_deduplicated_total"))
}

func TestLoadAllCities_SequentialCallsRefetch(t *testing.T) {
	api := &fakeAPI{cities: &cityapi.CitiesResult{AllCities: []cityapi.City{paris}}}
	l, _ := newLoader(t, api)

	l.LoadAllCities(context.Background())
	l.LoadAllCities(context.Background())

	assert.Equal(t, int32(2), api.citiesCalls.Load())
	assert.Equal(t, uint64(2), l.Cache().Generation(state.KeyFor(state.QueryAllCities, "")))
}

func TestLoadAllCities_NullPayloadIsEmptySuccess(t *testing.T) {
	l, _ := newLoader(t, &fakeAPI{})

	l.LoadAllCities(context.Background())

	entry := l.Cache().AllCities()
	assert.Equal(t, status.Succeeded, entry.Status)
	assert.Empty(t, entry.List)
	assert.True(t, entry.Flags().IsEmpty)
}

func TestLoadCityByID_NotFoundIsEmptySuccess(t *testing.T) {
	l, _ := newLoader(t, &fakeAPI{})

	l.LoadCityByID(context.Background(), "1")

	entry, ok := l.Cache().SelectedCity("1")
	require.True(t, ok)
	assert.Equal(t, status.Succeeded, entry.City.Status)
	assert.Nil(t, entry.City.Item)
	flags := entry.City.Flags()
	assert.True(t, flags.IsEmpty)
	assert.False(t, flags.HasError)
	assert.Equal(t, status.Idle, entry.Place.Status)
}

func TestLoadCityByID_Success(t *testing.T) {
	city := paris
	l, _ := newLoader(t, &fakeAPI{city: &city})

	l.LoadCityByID(context.Background(), "1")

	entry, ok := l.Cache().SelectedCity("1")
	require.True(t, ok)
	assert.Equal(t, status.Succeeded, entry.City.Status)
	require.NotNil(t, entry.City.Item)
	assert.Equal(t, "Paris", entry.City.Item.Name)
}

func TestLoadCityPlaces_RejectionBecomesFailedState(t *testing.T) {
	l, m := newLoader(t, &fakeAPI{placesErr: errors.New("boom")})

	l.LoadCityPlaces(context.Background(), "1", "paris")

	entry, ok := l.Cache().SelectedCity("1")
	require.True(t, ok)
	assert.Equal(t, status.Failed, entry.Place.Status)
	assert.Empty(t, entry.Place.List)
	flags := entry.Place.Flags()
	assert.True(t, flags.HasError)
	assert.False(t, flags.IsEmpty)
	assert.Equal(t, status.Idle, entry.City.Status, "city entry is lifecycled independently")
	assert.Equal(t, 1.0, counterValue(t, m, "cityguide_loader_requests_total"))
}

func TestLoadCityPlaces_RetryAfterFailure(t *testing.T) {
	api := &fakeAPI{placesErr: errors.New("boom")}
	l, _ := newLoader(t, api)

	l.LoadCityPlaces(context.Background(), "1", "paris")
	api.placesErr = nil
	api.places = &cityapi.PlacesResult{AllPlaces: []cityapi.Place{{Key: "louvre"}}}
	l.LoadCityPlaces(context.Background(), "1", "paris")

	entry, _ := l.Cache().SelectedCity("1")
	assert.Equal(t, status.Succeeded, entry.Place.Status)
	require.Len(t, entry.Place.List, 1)
	assert.Equal(t, "louvre", entry.Place.List[0].Key)
}

func TestClearAllCities_AfterSuccess(t *testing.T) {
	l, _ := newLoader(t, &fakeAPI{cities: &cityapi.CitiesResult{AllCities: []cityapi.City{paris}}})

	l.LoadAllCities(context.Background())
	l.ClearAllCities()

	flags := l.Cache().AllCities().Flags()
	assert.True(t, flags.IsIdle)
	assert.False(t, flags.IsLoaded)
}

func TestClear_DiscardsLateCompletion(t *testing.T) {
	api := &fakeAPI{
		gate:   make(chan struct{}),
		cities: &cityapi.CitiesResult{AllCities: []cityapi.City{paris}},
	}
	l, m := newLoader(t, api)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.LoadAllCities(context.Background())
	}()
	require.Eventually(t, func() bool {
		return l.Cache().AllCities().Status == status.Loading
	}, time.Second, time.Millisecond)

	l.ClearAllCities()
	close(api.gate)
	<-done

	entry := l.Cache().AllCities()
	assert.Equal(t, status.Idle, entry.Status)
	assert.Empty(t, entry.List)
	assert.Equal(t, 1.0, counterValue(t, m, "cityguide_loader_stale_completions_total"))
}

func TestLoad_PendingIsVisibleBeforeReturn(t *testing.T) {
	api := &fakeAPI{
		gate:   make(chan struct{}),
		cities: &cityapi.CitiesResult{AllCities: []cityapi.City{paris}},
	}
	l, m := newLoader(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.LoadAllCities(ctx)

	// The request cannot have settled, so the entry must already be loading.
	assert.Equal(t, status.Loading, l.Cache().AllCities().Status)

	l.ClearAllCities()
	close(api.gate)
	require.Eventually(t, func() bool {
		return counterValue(t, m, "cityguide_loader_stale_completions_total") == 1
	}, time.Second, time.Millisecond)

	entry := l.Cache().AllCities()
	assert.Equal(t, status.Idle, entry.Status)
	assert.Empty(t, entry.List)
}

func TestClear_AllowsNewRequestWhileOldInFlight(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{}), city: &paris}
	l, _ := newLoader(t, api)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.LoadCityByID(context.Background(), "1")
	}()
	require.Eventually(t, func() bool { return api.cityCalls.Load() == 1 }, time.Second, time.Millisecond)

	l.ClearCity("1")
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.LoadCityByID(context.Background(), "1")
	}()
	require.Eventually(t, func() bool { return api.cityCalls.Load() == 2 }, time.Second, time.Millisecond)

	close(api.gate)
	wg.Wait()

	entry, _ := l.Cache().SelectedCity("1")
	assert.Equal(t, status.Succeeded, entry.City.Status)
	assert.Equal(t, uint64(3), l.Cache().Generation(state.KeyFor(state.QueryCity, "1")))
}

func TestLoad_DifferentKeysRunIndependently(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{}), city: &paris}
	l, _ := newLoader(t, api)

	var wg sync.WaitGroup
	for _, id := range []state.CityID{"1", "2"} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.LoadCityByID(context.Background(), id)
		}()
	}
	require.Eventually(t, func() bool { return api.cityCalls.Load() == 2 }, time.Second, time.Millisecond)
	close(api.gate)
	wg.Wait()

	for _, id := range []state.CityID{"1", "2"} {
		entry, ok := l.Cache().SelectedCity(id)
		require.True(t, ok)
		assert.Equal(t, status.Succeeded, entry.City.Status, id)
	}
}

func TestLoad_WaiterHonoursContext(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{}), city: &paris}
	l, _ := newLoader(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		l.LoadCityByID(ctx, "1")
	}()
	require.Eventually(t, func() bool { return api.cityCalls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("LoadCityByID did not return after cancel")
	}

	// The request keeps running for the cache.
	entry, _ := l.Cache().SelectedCity("1")
	assert.Equal(t, status.Loading, entry.City.Status)

	close(api.gate)
	require.Eventually(t, func() bool {
		entry, _ := l.Cache().SelectedCity("1")
		return entry.City.Status == status.Succeeded
	}, time.Second, time.Millisecond)
}

func TestLoad_NotifiesSubscribers(t *testing.T) {
	l, _ := newLoader(t, &fakeAPI{city: &paris})
	ch, unsubscribe := l.Cache().Subscribe()
	defer unsubscribe()

	l.LoadCityByID(context.Background(), "1")

	select {
	case <-ch:
	default:
		t.Fatal("expected a change notification")
	}
}
