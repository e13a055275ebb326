package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// stderrTailSize bounds how much of the child's stderr is retained for
// diagnostics.
const stderrTailSize = 4096

// exitWaitTimeout bounds how long a failed read loop waits for the exit
// status before giving up on attributing the failure to the process.
const exitWaitTimeout = 2 * time.Second

// StdioTransport runs an MCP server as a child process and speaks
// newline-delimited JSON-RPC over its stdin/stdout. The child's stderr is
// drained into a bounded tail so a crash can be diagnosed after the fact.
type StdioTransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stream *StreamTransport
	tail   *tailBuffer

	exited  chan struct{}
	exitMu  sync.Mutex
	exitErr error

	closing    atomic.Bool
	closeGrace time.Duration
	closeOnce  sync.Once
}

// StdioTransportOption configures a StdioTransport.
type StdioTransportOption func(*StdioTransport)

// WithEnv appends variables, each in KEY=VALUE form, to the child's
// environment. The child inherits the parent environment either way; this
// is how the Doppler token travels to the server process.
func WithEnv(env ...string) StdioTransportOption {
	return func(t *StdioTransport) {
		if t.cmd.Env == nil {
			t.cmd.Env = os.Environ()
		}
		t.cmd.Env = append(t.cmd.Env, env...)
	}
}

// WithCloseGrace sets how long Close waits for the child to exit after
// stdin is closed before escalating to signals.
func WithCloseGrace(d time.Duration) StdioTransportOption {
	return func(t *StdioTransport) {
		t.closeGrace = d
	}
}

// NewStdioTransport spawns command with args and connects to its stdio.
// A missing or unrunnable executable surfaces as a *StartError.
func NewStdioTransport(command string, args []string, opts ...StdioTransportOption) (*StdioTransport, error) {
	cmd := exec.Command(command, args...)

	t := &StdioTransport{
		cmd:        cmd,
		tail:       newTailBuffer(stderrTailSize),
		exited:     make(chan struct{}),
		closeGrace: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	t.stdin = stdin

	// Child stdout flows through an in-process pipe so that cmd.Wait
	// cannot tear the stream down underneath the read loop: the pipe
	// only reports EOF once the exit supervisor has recorded the status
	// and closed it.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = t.tail

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, &StartError{Command: command, Err: err}
	}

	t.stream = newStreamTransport(pr, stdin, t.failure)

	go func() {
		err := cmd.Wait()
		t.exitMu.Lock()
		t.exitErr = err
		t.exitMu.Unlock()
		close(t.exited)
		_ = pw.Close()
	}()

	// If the read loop stops first, release the stdout copier so the
	// supervisor's Wait can finish.
	go func() {
		<-t.stream.done
		_ = pr.Close()
	}()

	return t, nil
}

// Send sends a request and waits for its response.
func (t *StdioTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return t.stream.Send(ctx, req)
}

// Notify sends a request that expects no response.
func (t *StdioTransport) Notify(ctx context.Context, req *protocol.Request) error {
	return t.stream.Notify(ctx, req)
}

// StderrTail returns the retained tail of the child's stderr output.
func (t *StdioTransport) StderrTail() []byte {
	return t.tail.Bytes()
}

// Close shuts the child down: stdin is closed so a well-behaved server
// exits on its own, then SIGTERM after the grace period, then SIGKILL.
// Safe to call more than once and after the child has already exited.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closing.Store(true)

		_ = t.stdin.Close()

		select {
		case <-t.exited:
		case <-time.After(t.closeGrace):
			_ = t.cmd.Process.Signal(syscall.SIGTERM)
			select {
			case <-t.exited:
			case <-time.After(time.Second):
				_ = t.cmd.Process.Kill()
				<-t.exited
			}
		}

		_ = t.stream.Close()
	})
	<-t.stream.done
	return nil
}

// failure turns the read loop's stop cause into the error handed to
// waiting and future callers.
func (t *StdioTransport) failure(cause error) error {
	if t.closing.Load() {
		return ErrClosed
	}

	select {
	case <-t.exited:
		return &ExitError{Err: t.exitError(), Stderr: t.StderrTail()}
	case <-time.After(exitWaitTimeout):
		// The stream broke while the process kept running, e.g. an
		// oversized line. Report the read failure itself.
		if cause == nil {
			cause = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read stream: %w", cause)
	}
}

func (t *StdioTransport) exitError() error {
	t.exitMu.Lock()
	defer t.exitMu.Unlock()
	return t.exitErr
}

// tailBuffer is a concurrency-safe writer retaining the last max bytes.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
