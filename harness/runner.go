package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dopplerkit/dopplermcp/client"
	"github.com/dopplerkit/dopplermcp/protocol"
)

// stderrSource is implemented by transports that retain the server's
// stderr output (client.StdioTransport does).
type stderrSource interface {
	StderrTail() []byte
}

// Runner replays scenarios against one session. The session must already
// be initialized.
type Runner struct {
	session *client.Session
	log     logrus.FieldLogger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger routes per-step progress to the given logger. Runs are
// silent without one.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// NewRunner creates a Runner over an initialized session.
func NewRunner(session *client.Session, opts ...Option) *Runner {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	r := &Runner{session: session, log: quiet}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report is the outcome of one scenario run.
type Report struct {
	// RunID uniquely identifies this run across log output.
	RunID    string
	Scenario string
	Steps    int
	Failures []StepFailure
}

// StepFailure records one failed step. Step numbers are 1-based.
type StepFailure struct {
	Step   int
	Target string
	Err    error
}

// Err flattens the failures into a single error, nil when the run passed.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("step %d (%s): %w", f.Step, f.Target, f.Err))
	}
	return fmt.Errorf("scenario %q: %w", r.Scenario, errors.Join(errs...))
}

// Run executes every step of the scenario, collecting failures rather
// than stopping at the first, so one broken expectation does not hide
// the rest.
func (r *Runner) Run(ctx context.Context, sc *Scenario) *Report {
	report := &Report{
		RunID:    uuid.NewString(),
		Scenario: sc.Name,
		Steps:    len(sc.Steps),
	}
	log := r.log.WithFields(logrus.Fields{"run_id": report.RunID, "scenario": sc.Name})
	log.Info("scenario start")

	for i, step := range sc.Steps {
		if err := r.runStep(ctx, step); err != nil {
			err = r.withStderr(err)
			report.Failures = append(report.Failures, StepFailure{
				Step:   i + 1,
				Target: step.target(),
				Err:    err,
			})
			log.WithFields(logrus.Fields{"step": i + 1, "target": step.target()}).
				WithError(err).Error("step failed")
			continue
		}
		log.WithFields(logrus.Fields{"step": i + 1, "target": step.target()}).Debug("step ok")
	}

	if len(report.Failures) == 0 {
		log.Info("scenario passed")
	}
	return report
}

// RunDir loads every scenario in dir and runs them in file-name order.
// All scenarios run even when earlier ones fail; the returned error joins
// every failed report.
func (r *Runner) RunDir(ctx context.Context, dir string) ([]*Report, error) {
	scenarios, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}

	var (
		reports []*Report
		errs    []error
	)
	for _, sc := range scenarios {
		report := r.Run(ctx, sc)
		reports = append(reports, report)
		if err := report.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// RunT replays the scenario under t, failing the test at the first step
// whose outcome does not match.
func (r *Runner) RunT(t *testing.T, sc *Scenario) {
	t.Helper()
	for i, step := range sc.Steps {
		err := r.runStep(context.Background(), step)
		require.NoErrorf(t, err, "step %d (%s)", i+1, step.target())
	}
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	if step.Call != "" {
		var args any
		if len(step.Args) > 0 {
			args = step.Args
		}
		text, err := r.session.CallToolText(ctx, step.Call, args)
		return checkToolOutcome(step.Expect, text, err)
	}

	var params any
	if len(step.Params) > 0 {
		params = step.Params
	}
	result, err := r.session.Call(ctx, step.Method, params)
	return checkCallOutcome(step.Expect, result, err)
}

func checkToolOutcome(expect *Expect, text string, err error) error {
	if expect != nil && expect.Error != nil {
		return matchError(expect.Error, err)
	}
	if err != nil {
		return err
	}
	if expect == nil {
		return nil
	}
	if expect.Text != "" && text != expect.Text {
		return fmt.Errorf("text = %q, want %q", text, expect.Text)
	}
	if expect.JSON != "" {
		return matchJSON(expect.JSON, []byte(text))
	}
	return nil
}

func checkCallOutcome(expect *Expect, result any, err error) error {
	if expect != nil && expect.Error != nil {
		return matchError(expect.Error, err)
	}
	if err != nil {
		return err
	}
	if expect == nil || expect.JSON == "" {
		return nil
	}

	actual, merr := json.Marshal(result)
	if merr != nil {
		return fmt.Errorf("encode result: %w", merr)
	}
	return matchJSON(expect.JSON, actual)
}

func matchError(want *ErrorMatch, err error) error {
	if err == nil {
		return errors.New("expected an error, call succeeded")
	}
	var rpcErr *protocol.Error
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("expected a server error, got: %w", err)
	}
	if want.Code != 0 && rpcErr.Code != want.Code {
		return fmt.Errorf("error code = %d, want %d", rpcErr.Code, want.Code)
	}
	if want.Message != "" && !strings.Contains(rpcErr.Message, want.Message) {
		return fmt.Errorf("error message %q does not contain %q", rpcErr.Message, want.Message)
	}
	return nil
}

// matchJSON compares two JSON documents structurally.
func matchJSON(want string, got []byte) error {
	var wantVal, gotVal any
	if err := json.Unmarshal([]byte(want), &wantVal); err != nil {
		return fmt.Errorf("expected JSON does not parse: %w", err)
	}
	if err := json.Unmarshal(got, &gotVal); err != nil {
		return fmt.Errorf("payload is not JSON: %w", err)
	}
	if !reflect.DeepEqual(wantVal, gotVal) {
		return fmt.Errorf("JSON mismatch: got %s, want %s", got, want)
	}
	return nil
}

// withStderr appends the server's stderr tail to transport-level
// failures. Server-answered errors keep their shape; the tail only helps
// when the process itself misbehaved.
func (r *Runner) withStderr(err error) error {
	var rpcErr *protocol.Error
	if errors.As(err, &rpcErr) {
		return err
	}
	src, ok := r.session.Transport().(stderrSource)
	if !ok {
		return err
	}
	tail := bytes.TrimSpace(src.StderrTail())
	if len(tail) == 0 {
		return err
	}
	return fmt.Errorf("%w (server stderr: %s)", err, tail)
}
