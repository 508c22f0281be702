package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/skyagarwal/mangwale-flow/model"
)

// Catalog holds every loaded flow definition, indexed by id and ordered by
// descending priority. Read-mostly: lookups take a read lock, and a reload
// replaces the whole index atomically instead of mutating entries in place.
type Catalog struct {
	mu      sync.RWMutex
	flows   map[string]model.FlowDefinition
	ordered []model.FlowDefinition
}

func NewCatalog() *Catalog {
	return &Catalog{
		flows: make(map[string]model.FlowDefinition),
	}
}

func (c *Catalog) Load(defs []model.FlowDefinition) error {
	flows := make(map[string]model.FlowDefinition, len(defs))
	for _, def := range defs {
		if err := Validate(def); err != nil {
			return err
		}
		if _, ok := flows[def.Id]; ok {
			return fmt.Errorf("duplicate flow id %s", def.Id)
		}
		flows[def.Id] = def
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flows = flows
	c.ordered = order(flows)
	return nil
}

// Register adds or replaces one definition, rebuilding the priority order.
func (c *Catalog) Register(def model.FlowDefinition) error {
	if err := Validate(def); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	flows := make(map[string]model.FlowDefinition, len(c.flows)+1)
	for id, d := range c.flows {
		flows[id] = d
	}
	flows[def.Id] = def
	c.flows = flows
	c.ordered = order(flows)
	return nil
}

func (c *Catalog) Get(id string) (*model.FlowDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.flows[id]
	if !ok {
		return nil, false
	}
	return &def, true
}

// ByPriority returns all definitions, highest priority first. Ties break on
// id so selection stays deterministic.
func (c *Catalog) ByPriority() []model.FlowDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ordered
}

func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.flows)
}

func order(flows map[string]model.FlowDefinition) []model.FlowDefinition {
	ordered := make([]model.FlowDefinition, 0, len(flows))
	for _, def := range flows {
		ordered = append(ordered, def)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Id < ordered[j].Id
	})
	return ordered
}
