// Package resilience implements a circuit breaker.
//
// The importer fetches arbitrary remote pages; when a host keeps
// failing, its breaker opens and fetch attempts fail fast with
// ErrCircuitOpen instead of burning retries. After the open timeout a
// bounded number of probe requests decide whether to close again.
//
//	breaker := resilience.New("importer", resilience.Settings{
//		MaxRequests: 2,
//		Timeout:     30 * time.Second,
//		ReadyToTrip: func(c resilience.Counts) bool {
//			return c.ConsecutiveFailures >= 5
//		},
//	})
//	result, err := breaker.Execute(func() (interface{}, error) {
//		return client.Get(url)
//	})
package resilience
