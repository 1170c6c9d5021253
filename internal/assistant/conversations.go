package assistant

import (
	"sync"
	"time"
)

// BridgeFactory создаёт мост для новой сессии
type BridgeFactory func(sessionID string) *Bridge

// Conversations мосты по идентификатору сессии. Мост создаётся при первом обращении.
type Conversations struct {
	mu      sync.Mutex
	bridges map[string]*Bridge
	factory BridgeFactory
	ttl     time.Duration
	now     func() time.Time
}

func NewConversations(factory BridgeFactory, ttl time.Duration) *Conversations {
	return &Conversations{
		bridges: make(map[string]*Bridge),
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get мост сессии
func (c *Conversations) Get(sessionID string) *Bridge {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bridges[sessionID]
	if !ok {
		b = c.factory(sessionID)
		c.bridges[sessionID] = b
	}
	return b
}

// Len число открытых диалогов
func (c *Conversations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bridges)
}

// Sweep закрывает диалоги, простаивающие дольше ttl. Диалоги с ответом в работе не трогаются.
func (c *Conversations) Sweep() int {
	if c.ttl <= 0 {
		return 0
	}
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, b := range c.bridges {
		if b.Pending() || b.idleSince().After(cutoff) {
			continue
		}
		delete(c.bridges, id)
		removed++
	}
	return removed
}
