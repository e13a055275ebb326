// Package doppler provides a typed client for Doppler MCP servers.
//
// It wraps a client.Session with one method per Doppler tool, so callers
// work with projects, configs, and secrets instead of raw tool names and
// JSON envelopes:
//
//	cfg := doppler.Config{Token: token}
//	dc, err := doppler.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer dc.Close()
//
//	projects, err := dc.ListProjects(ctx)
//	value, err := dc.GetSecret(ctx, "backend", "prd", "DATABASE_URL")
//
// The credential travels explicitly in Config.Token and is handed to the
// spawned server via its environment; the package itself never consults
// the environment. ConfigFromEnv exists for process edges (the CLI) that
// want to map DOPPLER_* variables onto a Config in one call.
//
// Structured results (project listings, activity logs) arrive as JSON
// embedded in the tool result envelope and are decoded into the types in
// this package. Scalar results (a single secret value) pass through
// verbatim. Tool failures surface as *protocol.Error values and transport
// failures as the typed errors in package client, so callers can
// distinguish "project not found" from "server process died".
package doppler
