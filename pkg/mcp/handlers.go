package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/urmzd/ipcom/pkg/device"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := "healthy"
	if !s.controller.IsConnected() {
		status = "unhealthy"
	}

	out := GetHealthOutput{
		Status:    status,
		Session:   s.controller.SessionState(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if snap := s.controller.Latest(); snap != nil {
		out.SnapshotAt = snap.ReceivedAt().UTC().Format(time.RFC3339)
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListModules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topo := s.controller.Topology()

	var numbers []int
	if topo != nil && len(topo.Modules) > 0 {
		numbers = topo.Numbers()
	} else if snap := s.controller.Latest(); snap != nil {
		numbers = snap.Modules()
	}

	modules := make([]ModuleInfo, 0, len(numbers))
	for _, n := range numbers {
		info := ModuleInfo{Number: n}
		if m, ok := topo.Module(n); ok {
			info.Type = string(m.Type)
		}
		for out := 1; out <= device.OutputsPerModule; out++ {
			info.Outputs = append(info.Outputs, outputInfo(topo, s.controller, device.OutputRef{Module: n, Output: out}))
		}
		modules = append(modules, info)
	}

	out := ListModulesOutput{Modules: modules, Count: len(modules)}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetModuleValues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	module, err := requiredInt(request, "module")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	values, err := s.controller.GetModuleValues(module)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get module values: %s", err)), nil
	}

	out := GetModuleValuesOutput{Module: module, Values: values}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetValue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := outputRef(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.controller.GetValue(ref.Module, ref.Output); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get value: %s", err)), nil
	}

	out := outputInfo(s.controller.Topology(), s.controller, ref)
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSetOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := outputRef(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := requiredInt(request, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !device.ValidValue(value) {
		return mcp.NewToolResultError(fmt.Sprintf("value %d is outside 0..255", value)), nil
	}

	wait := true
	if w, ok := request.GetArguments()["wait"].(bool); ok {
		wait = w
	}

	return s.setOutput(ctx, ref, value, wait), nil
}

func (s *Server) handleTurnOn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := outputRef(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.setOutput(ctx, ref, device.MaxValue, true), nil
}

func (s *Server) handleTurnOff(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := outputRef(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.setOutput(ctx, ref, device.MinValue, true), nil
}

func (s *Server) setOutput(ctx context.Context, ref device.OutputRef, value int, wait bool) *mcp.CallToolResult {
	out := SetOutputOutput{Module: ref.Module, Output: ref.Output, Value: value, Status: "queued"}

	var err error
	if wait {
		err = s.controller.SetOutputAndWait(ctx, ref.Module, ref.Output, value)
		out.Status = "acknowledged"
	} else {
		err = s.controller.SetOutput(ctx, ref.Module, ref.Output, value)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to set output %s: %s", ref, err))
	}
	return mcp.NewToolResultText(formatJSON(out))
}

// --- helpers ---

// requiredInt reads a whole-number argument. JSON numbers arrive as float64.
func requiredInt(request mcp.CallToolRequest, key string) (int, error) {
	v, ok := request.GetArguments()[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("required parameter %q is missing", key)
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("parameter %q must be an integer", key)
	}
	return int(f), nil
}

func outputRef(request mcp.CallToolRequest) (device.OutputRef, error) {
	module, err := requiredInt(request, "module")
	if err != nil {
		return device.OutputRef{}, err
	}
	output, err := requiredInt(request, "output")
	if err != nil {
		return device.OutputRef{}, err
	}
	ref := device.OutputRef{Module: module, Output: output}
	if !ref.Valid() {
		return device.OutputRef{}, fmt.Errorf("invalid output %s: module must be positive, output 1 to 8", ref)
	}
	return ref, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
