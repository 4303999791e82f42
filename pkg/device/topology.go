package device

import (
	"fmt"
	"sort"
	"strings"
)

// Module is one numbered bank of outputs. Immutable after discovery.
type Module struct {
	Number  int        `json:"number" yaml:"number"`
	Type    ModuleType `json:"type" yaml:"type"`
	Outputs []string   `json:"outputs" yaml:"outputs"` // output names, empty slot = unused
}

// OutputName returns the configured name of a 1-based output.
func (m Module) OutputName(output int) string {
	if output < 1 || output > len(m.Outputs) {
		return ""
	}
	return m.Outputs[output-1]
}

// Topology is the module/output map supplied by discovery. It is read-only input.
type Topology struct {
	Modules []Module `json:"modules" yaml:"modules"`
}

// Validate checks module numbers are positive and unique and slot counts fit the device.
func (t *Topology) Validate() error {
	if t == nil {
		return nil
	}
	seen := make(map[int]bool, len(t.Modules))
	for _, m := range t.Modules {
		if m.Number <= 0 {
			return fmt.Errorf("%w: module number %d must be positive", ErrValidation, m.Number)
		}
		if seen[m.Number] {
			return fmt.Errorf("%w: duplicate module %d", ErrValidation, m.Number)
		}
		seen[m.Number] = true
		if len(m.Outputs) > OutputsPerModule {
			return fmt.Errorf("%w: module %d has %d outputs, max %d", ErrValidation, m.Number, len(m.Outputs), OutputsPerModule)
		}
		switch m.Type {
		case ModuleExo8, ModuleExoDim, ModuleExoStore:
		default:
			return fmt.Errorf("%w: module %d has unknown type %q", ErrValidation, m.Number, m.Type)
		}
	}
	return nil
}

// Module returns the module with the given number.
func (t *Topology) Module(number int) (Module, bool) {
	if t == nil {
		return Module{}, false
	}
	for _, m := range t.Modules {
		if m.Number == number {
			return m, true
		}
	}
	return Module{}, false
}

// Numbers returns the module numbers in ascending order.
func (t *Topology) Numbers() []int {
	if t == nil {
		return nil
	}
	out := make([]int, 0, len(t.Modules))
	for _, m := range t.Modules {
		out = append(out, m.Number)
	}
	sort.Ints(out)
	return out
}

// HasOutput reports whether ref is addressable in this topology.
func (t *Topology) HasOutput(ref OutputRef) bool {
	if !ref.Valid() {
		return false
	}
	_, ok := t.Module(ref.Module)
	return ok
}

// Kind returns light, dimmer or shutter for the output, or "" if unknown.
func (t *Topology) Kind(ref OutputRef) string {
	m, ok := t.Module(ref.Module)
	if !ok {
		return ""
	}
	switch m.Type {
	case ModuleExoDim:
		return KindDimmer
	case ModuleExoStore:
		return KindShutter
	default:
		return KindLight
	}
}

// ShutterPairs lists the relay pairs of every ExoStore module. Odd outputs drive the cover
// down, the following even output drives it up. A pair exists if either slot is named.
func (t *Topology) ShutterPairs() []ShutterPair {
	if t == nil {
		return nil
	}
	var pairs []ShutterPair
	for _, m := range t.Modules {
		if m.Type != ModuleExoStore {
			continue
		}
		for down := 1; down < OutputsPerModule; down += 2 {
			downName, upName := m.OutputName(down), m.OutputName(down+1)
			if downName == "" && upName == "" {
				continue
			}
			name := downName
			if name == "" {
				name = upName
			}
			pairs = append(pairs, ShutterPair{
				Name: trimDirectionSuffix(name),
				Down: OutputRef{Module: m.Number, Output: down},
				Up:   OutputRef{Module: m.Number, Output: down + 1},
			})
		}
	}
	return pairs
}

// Partner returns the other relay of the shutter pair ref belongs to.
func (t *Topology) Partner(ref OutputRef) (OutputRef, RelayRole, bool) {
	for _, p := range t.ShutterPairs() {
		switch ref {
		case p.Down:
			return p.Up, RoleDown, true
		case p.Up:
			return p.Down, RoleUp, true
		}
	}
	return OutputRef{}, "", false
}

// Names on ExoStore modules carry a D (down) or M (monter, up) suffix.
func trimDirectionSuffix(name string) string {
	for _, suffix := range []string{" D", " M", "_D", "_M"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
