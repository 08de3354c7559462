// Package ui is the Bubble Tea front end for cityguide.
//
// The model reads cache state only through the selector package and triggers
// loads and clears only through selector actions. It never touches the
// loader's results directly: a subscription to the cache wakes the model
// after every applied transition, and the next View call re-derives
// everything from the accessors.
//
// Views:
//
//   - list: all cities with loading, empty and error states
//   - detail: one city plus its places, each with its own status chip
//   - help: full key map overlay
//
// An optional log pane tails the application log, and a banner shows while
// the connectivity prober reports the API as unreachable.
package ui
