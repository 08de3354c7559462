// Package app is the composition root for cityguide.
//
// Run wires the pieces together in this order:
//
//  1. config.Load and Validate (fatal on error)
//  2. logging.New writing to the configured log file
//  3. prefs.Load for theme and name display
//  4. cityapi.NewClient for the GraphQL API
//  5. state.NewCityCache and loader.New, with loader metrics
//  6. StartProber recording reachability into state.Connectivity
//  7. metrics.Serve when metrics_addr is set
//  8. ui.Run, which blocks until the user quits
//
// # Prober
//
// The prober pings the API at the configured interval. After a failure the
// next probe waits calculateBackoff(failures, interval), doubling per
// consecutive failure up to maxBackoff. Two failures in a row mark the app
// offline; the first success clears it. Transitions are logged, individual
// failures only at debug.
//
// Query failures are never fatal here. They live in the cache as failed
// entries and the UI offers a retry.
package app
