// Package state holds the cross-unit decode context: the active parameter
// set and the per-atlas patch and video state it governs.
//
// Nothing in this package is safe for concurrent use. A Context is owned by
// the single worker that decodes a unit group.
package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/user/vpccdec/pkg/v3c"
)

var (
	// ErrNoParameterSet is returned when a unit needs an active parameter set
	// and none has been activated.
	ErrNoParameterSet = errors.New("state: no active parameter set")

	// ErrParameterSetMismatch is returned when a unit references a parameter
	// set other than the active one.
	ErrParameterSetMismatch = errors.New("state: parameter set mismatch")

	// ErrUnknownAtlas is returned when a unit references an atlas the active
	// parameter set does not declare.
	ErrUnknownAtlas = errors.New("state: unknown atlas")
)

// Context is the decode context of one unit group.
type Context struct {
	active  *v3c.ParameterSet
	atlases map[uint8]*Atlas
}

// New creates an empty context with no active parameter set.
func New() *Context {
	return &Context{atlases: make(map[uint8]*Atlas)}
}

// NewWithActive creates a context that starts with ps active. ps may be nil.
func NewWithActive(ps *v3c.ParameterSet) *Context {
	c := New()
	c.active = ps
	return c
}

// Activate makes ps the active parameter set. Atlas state for atlases that
// ps does not declare is dropped.
func (c *Context) Activate(ps *v3c.ParameterSet) {
	c.active = ps
	for id := range c.atlases {
		if _, ok := ps.Atlas(id); !ok {
			delete(c.atlases, id)
		}
	}
}

// Active returns the active parameter set.
func (c *Context) Active() (*v3c.ParameterSet, error) {
	if c.active == nil {
		return nil, ErrNoParameterSet
	}
	return c.active, nil
}

// Atlas returns the state for atlas id, creating it on first use.
func (c *Context) Atlas(id uint8) *Atlas {
	a, ok := c.atlases[id]
	if !ok {
		a = newAtlas(id)
		c.atlases[id] = a
	}
	return a
}

// Atlases returns the atlas states created so far, ordered by atlas id.
func (c *Context) Atlases() []*Atlas {
	out := make([]*Atlas, 0, len(c.atlases))
	for _, a := range c.atlases {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CheckUnit validates the identifiers of a non-VPS unit header against the
// active parameter set.
func (c *Context) CheckUnit(h v3c.UnitHeader) error {
	if h.Type == v3c.UnitParameterSet {
		return nil
	}
	ps, err := c.Active()
	if err != nil {
		return fmt.Errorf("%s unit: %w", h.Type, err)
	}
	if h.ParameterSetID != ps.ID {
		return fmt.Errorf("%w: %s unit references %d, active is %d", ErrParameterSetMismatch, h.Type, h.ParameterSetID, ps.ID)
	}
	if _, ok := ps.Atlas(h.AtlasID); !ok {
		return fmt.Errorf("%w: %s unit references atlas %d", ErrUnknownAtlas, h.Type, h.AtlasID)
	}
	return nil
}
