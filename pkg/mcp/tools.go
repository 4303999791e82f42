package mcp

import "github.com/mark3labs/mcp-go/mcp"

func addressParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("module",
			mcp.Required(),
			mcp.Description("Module number"),
			mcp.Min(1),
		),
		mcp.WithNumber("output",
			mcp.Required(),
			mcp.Description("Output number on the module, 1 to 8"),
			mcp.Min(1),
			mcp.Max(8),
		),
	}
}

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check whether the session with the IPCom device is active"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_modules",
			mcp.WithDescription("List every module with its outputs, their names, kinds and latest values"),
		),
		s.handleListModules,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_module_values",
			mcp.WithDescription("Get the ordered output values of one module from the latest snapshot"),
			mcp.WithNumber("module",
				mcp.Required(),
				mcp.Description("Module number"),
				mcp.Min(1),
			),
		),
		s.handleGetModuleValues,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_value",
			append([]mcp.ToolOption{
				mcp.WithDescription("Get the latest value of one output (0 is off, 255 is fully on)"),
			}, addressParams()...)...,
		),
		s.handleGetValue,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_output",
			append([]mcp.ToolOption{
				mcp.WithDescription("Set an output to a value between 0 and 255. Shutter relays stop their partner first."),
				mcp.WithNumber("value",
					mcp.Required(),
					mcp.Description("Value between 0 (off) and 255 (fully on); dimmers use intermediate levels"),
					mcp.Min(0),
					mcp.Max(255),
				),
				mcp.WithBoolean("wait",
					mcp.Description("Wait for the device to acknowledge the command (default true)"),
				),
			}, addressParams()...)...,
		),
		s.handleSetOutput,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_on",
			append([]mcp.ToolOption{
				mcp.WithDescription("Turn an output fully on"),
			}, addressParams()...)...,
		),
		s.handleTurnOn,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_off",
			append([]mcp.ToolOption{
				mcp.WithDescription("Turn an output off"),
			}, addressParams()...)...,
		),
		s.handleTurnOff,
	)
}
