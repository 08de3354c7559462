package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/five82/cityguide/internal/cityapi"
	"github.com/five82/cityguide/internal/logging"
	"github.com/five82/cityguide/internal/metrics"
	"github.com/five82/cityguide/internal/state"
)

// Options configure a Loader.
type Options struct {
	Cache   *state.CityCache
	API     cityapi.Querier
	Logger  *logrus.Entry
	Metrics *metrics.Loader
}

// Loader runs queries against the API and records their lifecycle in the
// cache. At most one request per lifecycle key is in flight; later callers
// for the same key wait for it instead of issuing their own.
type Loader struct {
	cache   *state.CityCache
	api     cityapi.Querier
	log     *logrus.Entry
	metrics *metrics.Loader

	group singleflight.Group

	// mu orders Pending dispatches and clears against inflight.
	mu       sync.Mutex
	inflight map[state.Key]uint64
}

// New validates opts and returns a Loader.
func New(opts Options) (*Loader, error) {
	if opts.Cache == nil {
		return nil, errors.New("loader: cache is required")
	}
	if opts.API == nil {
		return nil, errors.New("loader: api is required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Loader{
		cache:    opts.Cache,
		api:      opts.API,
		log:      log,
		metrics:  opts.Metrics,
		inflight: make(map[state.Key]uint64),
	}, nil
}

// Cache returns the cache the loader writes to.
func (l *Loader) Cache() *state.CityCache {
	return l.cache
}

// LoadAllCities fetches the city list. It returns once the request settles or
// ctx is done. Failures end up in the cache, not in a return value.
func (l *Loader) LoadAllCities(ctx context.Context) {
	l.run(ctx, state.QueryAllCities, "", func(ctx context.Context, ev *state.Event) error {
		res, err := l.api.FetchAllCities(ctx)
		ev.Cities = res
		return err
	})
}

// LoadCityByID fetches one city. A missing city settles as succeeded with a
// nil item.
func (l *Loader) LoadCityByID(ctx context.Context, id state.CityID) {
	l.run(ctx, state.QueryCity, id, func(ctx context.Context, ev *state.Event) error {
		city, err := l.api.FetchCity(ctx, id)
		ev.City = city
		return err
	})
}

// LoadCityPlaces fetches the places of city id using its lookup key. Requests
// are deduplicated per id; key only selects what is fetched.
func (l *Loader) LoadCityPlaces(ctx context.Context, id state.CityID, key string) {
	l.run(ctx, state.QueryCityPlaces, id, func(ctx context.Context, ev *state.Event) error {
		res, err := l.api.FetchCityPlaces(ctx, id, key)
		ev.Places = res
		return err
	})
}

// ClearAllCities resets the city list to idle. A request still in flight
// settles without touching the cache.
func (l *Loader) ClearAllCities() {
	l.clear(state.KeyFor(state.QueryAllCities, ""), l.cache.ClearAllCities)
}

// ClearCity resets the detail entry of id to idle.
func (l *Loader) ClearCity(id state.CityID) {
	l.clear(state.KeyFor(state.QueryCity, id), func() { l.cache.ClearCity(id) })
}

// ClearCityPlaces resets the places entry of id to idle.
func (l *Loader) ClearCityPlaces(id state.CityID) {
	l.clear(state.KeyFor(state.QueryCityPlaces, id), func() { l.cache.ClearCityPlaces(id) })
}

func (l *Loader) clear(key state.Key, reset func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	reset()
	if gen, ok := l.inflight[key]; ok {
		l.group.Forget(flightKey(key, gen))
		delete(l.inflight, key)
	}
}

type execFunc func(ctx context.Context, ev *state.Event) error

// flightKey names one request. Keys differ per generation so a load started
// after a clear never joins the request the clear abandoned.
func flightKey(key state.Key, gen uint64) string {
	return fmt.Sprintf("%s#%d", key, gen)
}

// start dispatches Pending when no request for key is in flight and returns
// the channel of the request the caller should wait on.
func (l *Loader) start(ctx context.Context, q state.Query, id state.CityID, exec execFunc) (<-chan singleflight.Result, bool) {
	key := state.KeyFor(q, id)

	l.mu.Lock()
	defer l.mu.Unlock()

	gen, joined := l.inflight[key]
	if !joined {
		gen = l.cache.Dispatch(state.Event{Query: q, Phase: state.Pending, CityID: id}).Generation
		l.inflight[key] = gen
	}

	ch := l.group.DoChan(flightKey(key, gen), func() (any, error) {
		// The request outlives any single waiter.
		l.execute(context.WithoutCancel(ctx), q, id, gen, exec)

		l.mu.Lock()
		if l.inflight[key] == gen {
			delete(l.inflight, key)
		}
		l.mu.Unlock()
		return nil, nil
	})
	return ch, joined
}

func (l *Loader) run(ctx context.Context, q state.Query, id state.CityID, exec execFunc) {
	ch, joined := l.start(ctx, q, id, exec)
	log := l.log.WithFields(logrus.Fields{"query": q.String(), "key": state.KeyFor(q, id)})
	if joined {
		l.metrics.Deduplicated(q.String())
		log.Debug("joined in-flight request")
	}

	select {
	case <-ch:
	case <-ctx.Done():
		log.Debug("stopped waiting for request")
	}
}

func (l *Loader) execute(ctx context.Context, q state.Query, id state.CityID, gen uint64, exec execFunc) {
	log := l.log.WithFields(logrus.Fields{"query": q.String(), "city_id": id, "generation": gen})
	log.Debug("request started")

	started := time.Now()
	ev := state.Event{Query: q, CityID: id, Generation: gen}
	err := exec(ctx, &ev)
	elapsed := time.Since(started)

	outcome := metrics.OutcomeSucceeded
	if err != nil {
		outcome = metrics.OutcomeFailed
		ev.Phase = state.Rejected
		ev.Err = err
		ev.Cities, ev.City, ev.Places = nil, nil, nil
	} else {
		ev.Phase = state.Fulfilled
	}
	l.metrics.ObserveRequest(q.String(), outcome, elapsed)

	res := l.cache.Dispatch(ev)
	if !res.Applied {
		l.metrics.StaleCompletion(q.String())
		log.WithField("current_generation", res.Generation).Info("discarded stale completion")
		return
	}
	if err != nil {
		log.WithError(err).WithField("elapsed", elapsed).Warn("request failed")
		return
	}
	log.WithField("elapsed", elapsed).Debug("request succeeded")
}
