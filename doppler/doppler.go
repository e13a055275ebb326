package doppler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/dopplerkit/dopplermcp/client"
	"github.com/dopplerkit/dopplermcp/protocol"
)

// Config describes how to reach a Doppler MCP server. The credential is
// carried explicitly: nothing in this package reads the environment on its
// own. The env tags name the variables ConfigFromEnv reads and the
// defaults it applies; Connect requires Command to be set.
type Config struct {
	// Token is the Doppler service or personal token. It is injected into
	// the child's environment as DOPPLER_TOKEN.
	Token string `env:"DOPPLER_TOKEN"`

	// Command and Args name the server executable. The default launches
	// the published npm server via npx.
	Command string   `env:"DOPPLER_MCP_COMMAND,default=npx"`
	Args    []string `env:"DOPPLER_MCP_ARGS,default=-y;mcp-doppler-server"`

	// Project and ConfigName are optional defaults for callers that scope
	// every operation to one config, such as the CLI.
	Project    string `env:"DOPPLER_PROJECT"`
	ConfigName string `env:"DOPPLER_CONFIG"`

	// Timeout bounds each call. Zero keeps the session default.
	Timeout time.Duration `env:"DOPPLER_MCP_TIMEOUT,default=30s"`
}

// ConfigFromEnv populates a Config from DOPPLER_* environment variables.
// It exists as an explicit adapter for process edges like the CLI; library
// code should build the Config directly.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// Client is a typed facade over an MCP session speaking to a Doppler MCP
// server. Each method wraps one tool call; transport and protocol errors
// surface unchanged from the client package.
type Client struct {
	session *client.Session
}

// Connect spawns the configured server process, wires DOPPLER_TOKEN into
// its environment, and performs the initialize handshake. The returned
// Client owns the session; Close terminates the child.
func Connect(ctx context.Context, cfg Config, opts ...client.Option) (*Client, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("doppler: no server command configured")
	}

	var tOpts []client.StdioTransportOption
	if cfg.Token != "" {
		tOpts = append(tOpts, client.WithEnv("DOPPLER_TOKEN="+cfg.Token))
	}

	transport, err := client.NewStdioTransport(cfg.Command, cfg.Args, tOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		opts = append([]client.Option{client.WithTimeout(cfg.Timeout)}, opts...)
	}

	session := client.New(transport, opts...)
	if _, err := session.Initialize(ctx); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	return &Client{session: session}, nil
}

// NewClient wraps an existing session. Useful when the transport is not a
// spawned process, such as a WebSocket dial or an in-process test server.
func NewClient(session *client.Session) *Client {
	return &Client{session: session}
}

// Session exposes the underlying session for raw calls.
func (c *Client) Session() *client.Session {
	return c.session
}

// Close shuts down the session and reaps the server process if one was
// spawned. Safe to call more than once.
func (c *Client) Close() error {
	return c.session.Close()
}

// ListProjects returns every project visible to the token.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.session.CallToolJSON(ctx, protocol.ToolListProjects, ListProjectsArgs{}, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ListConfigs returns the configs (environments) of one project.
func (c *Client) ListConfigs(ctx context.Context, project string) ([]ConfigInfo, error) {
	var configs []ConfigInfo
	args := ListConfigsArgs{Project: project}
	if err := c.session.CallToolJSON(ctx, protocol.ToolListConfigs, args, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// ListSecrets returns every secret in a config with its value.
func (c *Client) ListSecrets(ctx context.Context, project, config string) (map[string]string, error) {
	var secrets map[string]string
	args := ListSecretsArgs{Project: project, Config: config}
	if err := c.session.CallToolJSON(ctx, protocol.ToolListSecrets, args, &secrets); err != nil {
		return nil, err
	}
	return secrets, nil
}

// ListSecretNames returns the secret names in a config without values.
func (c *Client) ListSecretNames(ctx context.Context, project, config string) ([]string, error) {
	var names []string
	args := ListSecretsArgs{Project: project, Config: config}
	if err := c.session.CallToolJSON(ctx, protocol.ToolListSecretNames, args, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// GetSecret returns one secret value. The payload is the bare value, not
// JSON, so this goes through the scalar unwrap path.
func (c *Client) GetSecret(ctx context.Context, project, config, name string) (string, error) {
	args := GetSecretArgs{Project: project, Config: config, Name: name}
	return c.session.CallToolText(ctx, protocol.ToolGetSecret, args)
}

// SetSecret creates or updates one secret.
func (c *Client) SetSecret(ctx context.Context, project, config, name, value string) error {
	args := SetSecretArgs{Project: project, Config: config, Name: name, Value: value}
	_, err := c.session.CallToolText(ctx, protocol.ToolSetSecret, args)
	return err
}

// SetSecrets writes every entry of secrets with one set call per key, in
// sorted key order. It returns the number of secrets written; on failure
// the count covers the writes that succeeded before the error.
func (c *Client) SetSecrets(ctx context.Context, project, config string, secrets map[string]string) (int, error) {
	names := make([]string, 0, len(secrets))
	for name := range secrets {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if err := c.SetSecret(ctx, project, config, name, secrets[name]); err != nil {
			return i, fmt.Errorf("set %s: %w", name, err)
		}
	}
	return len(names), nil
}

// DeleteSecrets removes the named secrets from a config.
func (c *Client) DeleteSecrets(ctx context.Context, project, config string, names ...string) error {
	args := DeleteSecretsArgs{Project: project, Config: config, Names: names}
	_, err := c.session.CallToolText(ctx, protocol.ToolDeleteSecrets, args)
	return err
}

// CreateServiceToken mints a service token for one config. An empty access
// defaults to "read"; pass "read/write" for tokens that may set secrets.
func (c *Client) CreateServiceToken(ctx context.Context, project, config, name, access string) (*ServiceToken, error) {
	if access == "" {
		access = "read"
	}
	args := CreateServiceTokenArgs{Project: project, Config: config, Name: name, Access: access}
	var token ServiceToken
	if err := c.session.CallToolJSON(ctx, protocol.ToolCreateServiceToken, args, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// GetActivityLogs returns a page of workplace activity, newest first.
// Zero page or perPage leave the server defaults in place.
func (c *Client) GetActivityLogs(ctx context.Context, page, perPage int) ([]ActivityLog, error) {
	var logs []ActivityLog
	args := GetActivityLogsArgs{Page: page, PerPage: perPage}
	if err := c.session.CallToolJSON(ctx, protocol.ToolGetActivityLogs, args, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// ListTools returns the server's tool catalogue.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	return c.session.ListTools(ctx)
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	return c.session.Ping(ctx)
}
