package mcp

import "github.com/urmzd/ipcom/pkg/device"

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status     string `json:"status" jsonschema:"description=Overall health status (healthy or unhealthy)"`
	Session    string `json:"session" jsonschema:"description=Session state (active, reconnecting, ...)"`
	SnapshotAt string `json:"snapshot_at,omitempty" jsonschema:"description=ISO8601 time the latest snapshot arrived"`
	Timestamp  string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// OutputInfo describes one output in tool outputs
type OutputInfo struct {
	Module int    `json:"module"`
	Output int    `json:"output"`
	Name   string `json:"name,omitempty" jsonschema:"description=Configured output name"`
	Kind   string `json:"kind,omitempty" jsonschema:"description=light, dimmer or shutter"`
	Value  *int   `json:"value" jsonschema:"description=Latest value, null before the first snapshot"`
}

// ModuleInfo describes one module in tool outputs
type ModuleInfo struct {
	Number  int          `json:"number"`
	Type    string       `json:"type,omitempty" jsonschema:"description=Exo8, ExoDim or ExoStore"`
	Outputs []OutputInfo `json:"outputs"`
}

// ListModulesOutput is the output for the list_modules tool
type ListModulesOutput struct {
	Modules []ModuleInfo `json:"modules"`
	Count   int          `json:"count"`
}

// GetModuleValuesOutput is the output for the get_module_values tool
type GetModuleValuesOutput struct {
	Module int   `json:"module"`
	Values []int `json:"values" jsonschema:"description=Output values in output order"`
}

// SetOutputOutput is the output for the set_output, turn_on and turn_off tools
type SetOutputOutput struct {
	Module int    `json:"module"`
	Output int    `json:"output"`
	Value  int    `json:"value"`
	Status string `json:"status" jsonschema:"description=queued or acknowledged"`
}

func outputInfo(topo *device.Topology, controller device.Controller, ref device.OutputRef) OutputInfo {
	info := OutputInfo{Module: ref.Module, Output: ref.Output}
	if m, ok := topo.Module(ref.Module); ok {
		info.Name = m.OutputName(ref.Output)
		info.Kind = topo.Kind(ref)
	}
	if v, err := controller.GetValue(ref.Module, ref.Output); err == nil {
		info.Value = &v
	}
	return info
}
