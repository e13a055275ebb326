// Package mcptest provides fake MCP servers and transports for testing
// Doppler clients without a real server process.
//
// Three levels of fidelity are available:
//
//   - ScriptTransport replays canned responses in order. Use it for unit
//     tests that assert exactly which requests a Session or doppler.Client
//     sends and how it reacts to specific replies.
//
//   - Server plus NewPipeTransport runs a real dispatch loop over
//     in-process pipes. The full wire path, from newline framing through
//     id correlation to envelope decoding, is exercised with no subprocess.
//     NewDopplerServer wires the nine Doppler tools to an in-memory world
//     of projects, configs, secrets, and activity logs.
//
//   - ServeStdio and WebSocketHandler expose the same Server over real
//     transports: a subprocess's stdin/stdout (the CLI's fake mode, e2e
//     tests) or an httptest WebSocket endpoint.
//
// A typical integration test:
//
//	srv := mcptest.NewDopplerServer(mcptest.DefaultSeed())
//	session := client.New(mcptest.NewPipeTransport(srv))
//	if _, err := session.Initialize(ctx); err != nil { ... }
//	defer session.Close()
//
//	dc := doppler.NewClient(session)
//	projects, err := dc.ListProjects(ctx)
package mcptest
