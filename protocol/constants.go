package protocol

// MCP protocol version.
const MCPVersion = "2024-11-05"

// MCP method names.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
)

// Tool names exposed by the Doppler MCP server.
const (
	ToolListProjects       = "doppler_list_projects"
	ToolListConfigs        = "doppler_list_configs"
	ToolListSecrets        = "doppler_list_secrets"
	ToolListSecretNames    = "doppler_list_secret_names"
	ToolGetSecret          = "doppler_get_secret"
	ToolSetSecret          = "doppler_set_secret"
	ToolDeleteSecrets      = "doppler_delete_secrets"
	ToolCreateServiceToken = "doppler_create_service_token"
	ToolGetActivityLogs    = "doppler_get_activity_logs"
)
