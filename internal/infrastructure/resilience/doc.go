/*
Package resilience provides a circuit breaker for calls into the host
environment that can fail repeatedly, such as launching the platform file
opener on a machine without one.

# States

  - Closed: calls run; consecutive failures are counted
  - Open: calls fail fast with ErrCircuitOpen until the cooldown passes
  - Half-open: one trial call runs; success closes, failure reopens

# Usage

	b := resilience.New("opener", resilience.Settings{Threshold: 3})
	err := b.Do(func() error {
	    return launch(target)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
	    // skip without trying
	}
*/
package resilience
