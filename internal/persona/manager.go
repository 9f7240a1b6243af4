package persona

import (
	"fmt"
	"sort"
)

// Catalog indexes persona definitions by identity and by worker agent name.
type Catalog struct {
	byIdentity map[string]Definition
	byAgent    map[string]string
	order      []string
}

// NewCatalog validates defs and builds a catalog from them. Identities and
// agent names must be unique.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		byIdentity: make(map[string]Definition, len(defs)),
		byAgent:    make(map[string]string, len(defs)),
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byIdentity[d.Identity]; dup {
			return nil, fmt.Errorf("duplicate persona identity: %s", d.Identity)
		}
		if d.AgentName != "" {
			if other, dup := c.byAgent[d.AgentName]; dup {
				return nil, fmt.Errorf("agent name %q used by both %s and %s", d.AgentName, other, d.Identity)
			}
			c.byAgent[d.AgentName] = d.Identity
		}
		c.byIdentity[d.Identity] = d
		c.order = append(c.order, d.Identity)
	}
	return c, nil
}

// DefaultCatalog returns a catalog holding the built-in personas.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Builtins()...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get looks up a persona by identity.
func (c *Catalog) Get(identity string) (Definition, bool) {
	d, ok := c.byIdentity[identity]
	return d, ok
}

// MustGet is Get for identities known to exist.
func (c *Catalog) MustGet(identity string) Definition {
	d, ok := c.Get(identity)
	if !ok {
		panic(fmt.Sprintf("persona %q not in catalog", identity))
	}
	return d
}

// ByAgentName looks up a persona by its worker routing name.
func (c *Catalog) ByAgentName(name string) (Definition, bool) {
	id, ok := c.byAgent[name]
	if !ok {
		return Definition{}, false
	}
	return c.byIdentity[id], true
}

// List returns definitions in insertion order.
func (c *Catalog) List() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byIdentity[id])
	}
	return out
}

// Identities returns the sorted identities.
func (c *Catalog) Identities() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

// Override returns a new catalog where defs replace or extend entries with
// the same identity. Only non-empty fields of an override are applied.
func (c *Catalog) Override(defs ...Definition) (*Catalog, error) {
	merged := c.List()
	index := make(map[string]int, len(merged))
	for i, d := range merged {
		index[d.Identity] = i
	}
	for _, o := range defs {
		if i, ok := index[o.Identity]; ok {
			merged[i] = merged[i].merge(o)
			continue
		}
		index[o.Identity] = len(merged)
		merged = append(merged, o)
	}
	return NewCatalog(merged...)
}
