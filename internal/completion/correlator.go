package completion

import "sync"

// Correlator pairs outbound completion requests with their asynchronous
// responses. Each connection tags requests with a strictly increasing id; a
// response is delivered only while its id is still the newest for that
// connection, so a keystroke that fires a new request silently invalidates
// any response still in flight for the old one.
type Correlator struct {
	mu     sync.Mutex
	latest map[string]uint64 // connection id → newest request id seen
}

// NewCorrelator creates an empty correlator.
func NewCorrelator() *Correlator {
	return &Correlator{latest: make(map[string]uint64)}
}

// Track records a request id for a connection. It returns false when the id
// is not newer than the last one seen, in which case the request should be
// dropped as stale or replayed.
func (c *Correlator) Track(connectionID string, requestID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.latest[connectionID]; ok && requestID <= last {
		return false
	}
	c.latest[connectionID] = requestID
	return true
}

// Current reports whether requestID is still the newest request for the
// connection. A stale response must not be delivered.
func (c *Correlator) Current(connectionID string, requestID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest[connectionID] == requestID
}

// Forget drops all state for a connection. Called at disconnect.
func (c *Correlator) Forget(connectionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.latest, connectionID)
}
