package device

import "fmt"

// ModuleType identifies the kind of output bank installed on the bus.
type ModuleType string

// Module types reported by the IPCom topology.
const (
	ModuleExo8     ModuleType = "Exo8"     // 8 on/off relays
	ModuleExoDim   ModuleType = "ExoDim"   // 8 dimmer channels
	ModuleExoStore ModuleType = "ExoStore" // 4 shutter relay pairs
)

// OutputsPerModule is the number of output slots on every module in the device family.
const OutputsPerModule = 8

// Output value bounds. 0 is off; anything above is on or, for dimmers, a brightness level.
const (
	MinValue = 0
	MaxValue = 255
)

// Output kinds derived from the module type.
const (
	KindLight   = "light"
	KindDimmer  = "dimmer"
	KindShutter = "shutter"
)

// OutputRef addresses a single output. Output is 1-based.
type OutputRef struct {
	Module int `json:"module"`
	Output int `json:"output"`
}

func (r OutputRef) String() string {
	return fmt.Sprintf("%d/%d", r.Module, r.Output)
}

// Valid reports whether the reference is structurally addressable.
func (r OutputRef) Valid() bool {
	return r.Module > 0 && r.Output >= 1 && r.Output <= OutputsPerModule
}

// ValidValue reports whether v fits the device value range.
func ValidValue(v int) bool {
	return v >= MinValue && v <= MaxValue
}

// RelayRole is the direction a shutter relay drives.
type RelayRole string

const (
	RoleDown RelayRole = "down"
	RoleUp   RelayRole = "up"
)

// ShutterPair is the matched down/up relay pair driving one cover.
type ShutterPair struct {
	Name string    `json:"name"`
	Down OutputRef `json:"down"`
	Up   OutputRef `json:"up"`
}
