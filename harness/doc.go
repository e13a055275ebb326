// Package harness replays YAML-scripted scenarios against a live MCP
// session, so smoke suites can live next to the code as data instead of
// as hand-written test bodies.
//
// A scenario file names a sequence of steps; each step invokes a tool
// (or a raw JSON-RPC method) and optionally pins the outcome:
//
//	name: secrets roundtrip
//	steps:
//	  - call: doppler_set_secret
//	    args: {project: demo, config: dev, name: PASSWORD, value: hunter2}
//	  - call: doppler_get_secret
//	    args: {project: demo, config: dev, name: PASSWORD}
//	    expect:
//	      text: hunter2
//	  - method: bogus/method
//	    expect:
//	      error: {code: -32601}
//
// Run scenarios with a Runner over any initialized client.Session:
//
//	runner := harness.NewRunner(session)
//	report := runner.Run(ctx, scenario)
//	if err := report.Err(); err != nil {
//		log.Fatal(err)
//	}
//
// Inside a test, RunT fails the test at the first mismatched step. The
// dopplermcp CLI's smoke command wraps RunDir for use against a real
// server.
package harness
