package risk

import (
	"sync"
	"time"
)

// Cooldowns maps symbol -> last trade time. The key is deliberately
// symbol-only, not (user, symbol): all users trading the same symbol in this
// process share one cooldown, an exchange-wide throttle where the last writer
// wins. Owned by the scheduler, passed by handle.
type Cooldowns struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{last: make(map[string]time.Time)}
}

func (c *Cooldowns) Last(symbol string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[symbol]
	return t, ok
}

func (c *Cooldowns) Stamp(symbol string, t time.Time) {
	c.mu.Lock()
	c.last[symbol] = t
	c.mu.Unlock()
}
