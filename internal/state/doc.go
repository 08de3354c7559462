// Package state holds the in-memory city cache and the API connectivity record
// shared between the loader, the prober and the UI.
//
// # City cache
//
// CityCache owns a CityCacheState:
//
//	AllCities     ListEntry[City]                 idle/[] at start
//	SelectedCity  map[CityID]SelectedCityEntry    empty at start
//	                └─ City   ItemEntry[City]
//	                └─ Place  ListEntry[Place]
//
// Every resource runs the same lifecycle:
//
//	idle ──pending──> loading ──fulfilled──> succeeded
//	                     │
//	                     └────rejected────> failed
//
// succeeded and failed re-enter loading on the next pending. Clear methods
// reset a resource to idle at any point.
//
// The cache is only changed through Dispatch (lifecycle events) and the Clear
// methods. Reads return deep copies, so callers may keep or mutate what they
// get back.
//
// # Transition rules
//
//   - Pending: status=loading; lists reset to empty, items reset to nil.
//   - Fulfilled: status=succeeded; a nil payload becomes an empty list or a
//     nil item. A nil item is a "not found", not a failure.
//   - Rejected: status=failed; lists reset to empty, items reset to nil.
//   - Clear*: status=idle and data reset.
//
// The first event naming an unseen city id creates its record with both
// sub-entries present. City and Place never change each other's status.
//
// # Generations
//
// Each lifecycle key (all, city:<id>, places:<id>) has a generation counter.
// Pending and Clear* bump it. Dispatch returns the generation for a pending
// event and drops any terminal event whose Generation no longer matches, so a
// response that lands after a clear leaves the entry idle.
//
// # Notifications
//
// Subscribe returns a coalescing channel that fires after every applied
// change. The UI waits on it to redraw instead of polling.
//
// # Connectivity
//
// Connectivity keeps the outcome of periodic API probes. Two consecutive
// failures mark the API offline; any success resets the counter. Subscribers
// are signalled only when the offline state flips.
package state
