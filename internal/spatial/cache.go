package spatial

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// PlanCache is a thread-safe LRU cache of deployment plans whose entries expire
// after a fixed TTL. A nil *PlanCache is valid and never hits.
type PlanCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key     string
	value   domain.DeploymentPlan
	expires time.Time
	prev    *entry
	next    *entry
}

// NewPlanCache creates a cache. It returns nil, which disables caching, when
// maxEntries or ttl is not positive. A nil clock uses real time.
func NewPlanCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *PlanCache {
	if maxEntries <= 0 || ttl <= 0 {
		return nil
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PlanCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// Get returns a copy of the cached plan for key if present and unexpired.
func (c *PlanCache) Get(key string) (domain.DeploymentPlan, bool) {
	if c == nil {
		return domain.DeploymentPlan{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.DeploymentPlan{}, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return domain.DeploymentPlan{}, false
	}
	c.moveToFront(e)
	plan := e.value
	plan.Sites = slices.Clone(plan.Sites)
	return plan, true
}

// Put stores plan under key, evicting the least recently used entry when full.
func (c *PlanCache) Put(key string, plan domain.DeploymentPlan) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	plan.Sites = slices.Clone(plan.Sites)
	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = plan
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: plan, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len reports the number of stored entries, expired ones included until they
// are next looked up or evicted.
func (c *PlanCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *PlanCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *PlanCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *PlanCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *PlanCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

// cacheKey identifies a request by every input that affects the plan.
func cacheKey(req Request, spacing float64) string {
	var b strings.Builder
	r := req.Region
	fmt.Fprintf(&b, "%s|%g,%g,%g,%g|%g|%g", req.InterventionType, r.LatMin, r.LatMax, r.LonMin, r.LonMax, req.Budget, spacing)
	c := req.Constraints
	if c.MinDistanceKm != nil {
		fmt.Fprintf(&b, "|dist=%g", *c.MinDistanceKm)
	}
	if c.MaxElevation != nil {
		fmt.Fprintf(&b, "|elev=%g", *c.MaxElevation)
	}
	if len(c.AllowedLandCovers) > 0 {
		covers := slices.Clone(c.AllowedLandCovers)
		slices.Sort(covers)
		fmt.Fprintf(&b, "|cover=%s", strings.Join(covers, ","))
	}
	if c.MinDistanceKm != nil {
		for _, g := range c.ExistingDeployments {
			fmt.Fprintf(&b, "|at=%g,%g", g.Lat, g.Lon)
		}
	}
	return b.String()
}
