package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urmzd/ipcom/pkg/api/types"
	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/device/schema"
)

// OutputSetSchemaName names the request schema registered for output mutations.
const OutputSetSchemaName = "output_set"

// OutputSetSchema validates the body of POST /modules/:module/outputs/:output.
var OutputSetSchema = json.RawMessage(`{
	"type": "object",
	"additionalProperties": false,
	"required": ["value"],
	"properties": {
		"value": {"type": "integer", "minimum": 0, "maximum": 255},
		"wait": {"type": "boolean"}
	}
}`)

// waitTimeout bounds how long a request waits for an acknowledgment.
const waitTimeout = 10 * time.Second

// OutputsHandler serves module and output reads and mutations
type OutputsHandler struct {
	controller device.Controller
	validator  *schema.Validator
}

// NewOutputsHandler creates a new outputs handler
func NewOutputsHandler(controller device.Controller, validator *schema.Validator) *OutputsHandler {
	validator.Register(OutputSetSchemaName, OutputSetSchema)
	return &OutputsHandler{controller: controller, validator: validator}
}

// ListModules handles GET /modules
// @Summary      List modules
// @Description  Returns every known module with the latest value of each output
// @Tags         modules
// @Produce      json
// @Success      200  {object}  types.ListModulesResponse
// @Router       /modules [get]
func (h *OutputsHandler) ListModules(c *gin.Context) {
	var modules []types.ModuleResponse
	for _, n := range h.moduleNumbers() {
		modules = append(modules, h.module(n))
	}
	c.JSON(http.StatusOK, types.ListModulesResponse{Modules: modules, Count: len(modules)})
}

// GetModule handles GET /modules/:module
// @Summary      Get module
// @Description  Returns one module with the latest value of each output
// @Tags         modules
// @Produce      json
// @Param        module  path      int  true  "Module number"
// @Success      200     {object}  types.ModuleResponse
// @Failure      400     {object}  types.ErrorResponse  "Invalid module number"
// @Failure      404     {object}  types.ErrorResponse  "Module not found"
// @Router       /modules/{module} [get]
func (h *OutputsHandler) GetModule(c *gin.Context) {
	n, ok := pathInt(c, "module")
	if !ok {
		return
	}
	if !h.knownModule(n) {
		writeError(c, device.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, h.module(n))
}

// GetOutput handles GET /modules/:module/outputs/:output
// @Summary      Get output
// @Description  Returns the latest value of one output
// @Tags         outputs
// @Produce      json
// @Param        module  path      int  true  "Module number"
// @Param        output  path      int  true  "Output number (1-8)"
// @Success      200     {object}  types.OutputState
// @Failure      400     {object}  types.ErrorResponse  "Invalid address"
// @Failure      404     {object}  types.ErrorResponse  "Output not found"
// @Router       /modules/{module}/outputs/{output} [get]
func (h *OutputsHandler) GetOutput(c *gin.Context) {
	ref, ok := pathRef(c)
	if !ok {
		return
	}
	if !h.knownModule(ref.Module) {
		writeError(c, device.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, h.output(ref))
}

// SetOutput handles POST /modules/:module/outputs/:output
// @Summary      Set output
// @Description  Queues a new value for an output. With wait=true the response is sent after the device acknowledges it.
// @Tags         outputs
// @Accept       json
// @Produce      json
// @Param        module   path      int                     true  "Module number"
// @Param        output   path      int                     true  "Output number (1-8)"
// @Param        request  body      types.SetOutputRequest  true  "Value to set"
// @Success      200      {object}  types.CommandResponse   "Acknowledged by the device"
// @Success      202      {object}  types.CommandResponse   "Queued"
// @Failure      400      {object}  types.ErrorResponse     "Invalid request"
// @Failure      404      {object}  types.ErrorResponse     "Output not found"
// @Failure      429      {object}  types.ErrorResponse     "Command queue full"
// @Failure      502      {object}  types.ErrorResponse     "Rejected by the device"
// @Failure      503      {object}  types.ErrorResponse     "Session unavailable"
// @Failure      504      {object}  types.ErrorResponse     "Not acknowledged in time"
// @Router       /modules/{module}/outputs/{output} [post]
func (h *OutputsHandler) SetOutput(c *gin.Context) {
	ref, ok := pathRef(c)
	if !ok {
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, "invalid_request", "Invalid request body")
		return
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		badRequest(c, "invalid_request", "Invalid request body")
		return
	}
	if err := h.validator.Validate(OutputSetSchemaName, body); err != nil {
		badRequest(c, "validation_error", err.Error())
		return
	}

	// The schema has already checked types and bounds.
	var req types.SetOutputRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		badRequest(c, "invalid_request", err.Error())
		return
	}

	h.apply(c, ref, req.Value, req.Wait)
}

// TurnOn handles POST /modules/:module/outputs/:output/on
// @Summary      Turn output on
// @Description  Sets an output to 255
// @Tags         outputs
// @Produce      json
// @Param        module  path      int   true   "Module number"
// @Param        output  path      int   true   "Output number (1-8)"
// @Param        wait    query     bool  false  "Wait for the device acknowledgment"
// @Success      200     {object}  types.CommandResponse
// @Success      202     {object}  types.CommandResponse
// @Failure      404     {object}  types.ErrorResponse
// @Failure      503     {object}  types.ErrorResponse
// @Router       /modules/{module}/outputs/{output}/on [post]
func (h *OutputsHandler) TurnOn(c *gin.Context) {
	if ref, ok := pathRef(c); ok {
		h.apply(c, ref, device.MaxValue, c.Query("wait") == "true")
	}
}

// TurnOff handles POST /modules/:module/outputs/:output/off
// @Summary      Turn output off
// @Description  Sets an output to 0
// @Tags         outputs
// @Produce      json
// @Param        module  path      int   true   "Module number"
// @Param        output  path      int   true   "Output number (1-8)"
// @Param        wait    query     bool  false  "Wait for the device acknowledgment"
// @Success      200     {object}  types.CommandResponse
// @Success      202     {object}  types.CommandResponse
// @Failure      404     {object}  types.ErrorResponse
// @Failure      503     {object}  types.ErrorResponse
// @Router       /modules/{module}/outputs/{output}/off [post]
func (h *OutputsHandler) TurnOff(c *gin.Context) {
	if ref, ok := pathRef(c); ok {
		h.apply(c, ref, device.MinValue, c.Query("wait") == "true")
	}
}

func (h *OutputsHandler) apply(c *gin.Context, ref device.OutputRef, value int, wait bool) {
	resp := types.CommandResponse{Status: "queued", Module: ref.Module, Output: ref.Output, Value: value}

	if !wait {
		if err := h.controller.SetOutput(c.Request.Context(), ref.Module, ref.Output, value); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, resp)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), waitTimeout)
	defer cancel()
	if err := h.controller.SetOutputAndWait(ctx, ref.Module, ref.Output, value); err != nil {
		writeError(c, err)
		return
	}
	resp.Status = "acknowledged"
	c.JSON(http.StatusOK, resp)
}

func (h *OutputsHandler) moduleNumbers() []int {
	if topo := h.controller.Topology(); topo != nil && len(topo.Modules) > 0 {
		return topo.Numbers()
	}
	if snap := h.controller.Latest(); snap != nil {
		return snap.Modules()
	}
	return nil
}

func (h *OutputsHandler) knownModule(n int) bool {
	for _, m := range h.moduleNumbers() {
		if m == n {
			return true
		}
	}
	return false
}

func (h *OutputsHandler) module(n int) types.ModuleResponse {
	resp := types.ModuleResponse{Number: n}
	count := device.OutputsPerModule
	if topo := h.controller.Topology(); topo != nil {
		if m, ok := topo.Module(n); ok {
			resp.Type = string(m.Type)
		}
	}
	if snap := h.controller.Latest(); snap != nil {
		if values, ok := snap.ModuleValues(n); ok && len(values) > count {
			count = len(values)
		}
	}
	for out := 1; out <= count; out++ {
		resp.Outputs = append(resp.Outputs, h.output(device.OutputRef{Module: n, Output: out}))
	}
	return resp
}

func (h *OutputsHandler) output(ref device.OutputRef) types.OutputState {
	st := types.OutputState{Module: ref.Module, Output: ref.Output}
	if topo := h.controller.Topology(); topo != nil {
		if m, ok := topo.Module(ref.Module); ok {
			st.Name = m.OutputName(ref.Output)
			st.Kind = topo.Kind(ref)
		}
	}
	if v, err := h.controller.GetValue(ref.Module, ref.Output); err == nil {
		st.Value = &v
	}
	return st
}

func pathInt(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		badRequest(c, "invalid_"+name, name+" must be a positive integer")
		return 0, false
	}
	return n, true
}

func pathRef(c *gin.Context) (device.OutputRef, bool) {
	module, ok := pathInt(c, "module")
	if !ok {
		return device.OutputRef{}, false
	}
	output, ok := pathInt(c, "output")
	if !ok {
		return device.OutputRef{}, false
	}
	ref := device.OutputRef{Module: module, Output: output}
	if !ref.Valid() {
		badRequest(c, "invalid_output", "output must be between 1 and 8")
		return device.OutputRef{}, false
	}
	return ref, true
}
