/*
Package resilience provides a circuit breaker for outbound calls.

# Overview

The breaker protects the evaluation path from a failing data plane:
instead of stacking timeouts on a peer that stopped answering, calls fail
fast with ErrOpen until the peer has a chance to recover.

# Usage

	breaker := resilience.New(resilience.Settings{
		Name:        "data-plane",
		MaxRequests: 3,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Printf("breaker %s: %s -> %s", name, from, to)
		},
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.Call()
	})

# States

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[successes]-> Closed
	                                                |
	                                            [failure]
	                                                |
	                                                v
	                                              Open

Closed passes requests through and counts outcomes. Open rejects
immediately with ErrOpen. Half-Open admits up to MaxRequests probes;
one failure reopens, MaxRequests successes close.
*/
package resilience
