package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// maxLineBytes bounds a single wire line. Secret listings can run large,
// so the limit is well above the bufio default.
const maxLineBytes = 10 * 1024 * 1024

type callResult struct {
	resp *protocol.Response
	err  error
}

// router correlates wire responses to in-flight requests by id. It backs
// both the stream and the websocket transports.
//
// Failure handling follows two tiers. A malformed line fails every call
// that was waiting when it arrived, because there is no way to tell whose
// answer the line was, but the transport keeps reading. A response id that
// matches no in-flight request means the two sides disagree about the
// conversation, so the router poisons itself and every later call fails.
type router struct {
	mu        sync.Mutex
	pending   map[int64]chan callResult
	abandoned map[int64]struct{}
	closed    bool
	failErr   error
}

func newRouter() *router {
	return &router{
		pending:   make(map[int64]chan callResult),
		abandoned: make(map[int64]struct{}),
	}
}

// register reserves a response slot for the given request id.
func (r *router) register(id int64) (chan callResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failErr != nil {
		return nil, r.failErr
	}
	if r.closed {
		return nil, ErrClosed
	}

	ch := make(chan callResult, 1)
	r.pending[id] = ch
	return ch, nil
}

// unregister drops a reservation after a failed write.
func (r *router) unregister(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
	return r.failErr
}

// abandon gives up on a reservation whose waiter stopped listening. A
// response bearing the id may still arrive later and will be discarded
// instead of being read as desync.
func (r *router) abandon(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pending[id]; ok {
		delete(r.pending, id)
		r.abandoned[id] = struct{}{}
	}
}

// sendable reports whether new traffic may be issued.
func (r *router) sendable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if r.closed {
		return ErrClosed
	}
	return nil
}

// dispatch routes one wire line. It returns a non-nil error only when the
// line proves the conversation is desynchronized and reading must stop.
func (r *router) dispatch(line []byte) error {
	resp, err := protocol.ParseResponse(line)
	if err != nil {
		if errors.Is(err, protocol.ErrServerMessage) {
			// Server-initiated notification; this client issues requests
			// only, so there is nothing to route it to.
			return nil
		}
		r.fail(&MalformedResponseError{Line: append([]byte(nil), line...), Err: err})
		return nil
	}

	var id int64
	if len(resp.ID) == 0 || json.Unmarshal(resp.ID, &id) != nil {
		cerr := &CorrelationError{Got: string(resp.ID)}
		r.poison(cerr)
		return cerr
	}

	r.mu.Lock()
	if ch, ok := r.pending[id]; ok {
		delete(r.pending, id)
		r.mu.Unlock()
		ch <- callResult{resp: resp}
		return nil
	}
	if _, ok := r.abandoned[id]; ok {
		// Late answer to a call that timed out. Drop it; the ids still line up.
		delete(r.abandoned, id)
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	cerr := &CorrelationError{Got: strconv.FormatInt(id, 10)}
	r.poison(cerr)
	return cerr
}

// fail delivers err to every in-flight call. The router stays usable.
func (r *router) fail(err error) {
	r.mu.Lock()
	waiting := r.pending
	r.pending = make(map[int64]chan callResult)
	r.mu.Unlock()

	for _, ch := range waiting {
		ch <- callResult{err: err}
	}
}

// poison delivers err to every in-flight call and refuses all future ones.
func (r *router) poison(err error) {
	r.mu.Lock()
	if r.failErr == nil {
		r.failErr = err
	}
	r.mu.Unlock()
	r.fail(err)
}

// markClosed makes future sends fail with ErrClosed.
func (r *router) markClosed() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *router) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// await blocks until the reserved slot is filled or ctx is done.
func (r *router) await(ctx context.Context, id int64, ch chan callResult) (*protocol.Response, error) {
	select {
	case <-ctx.Done():
		r.abandon(id)
		return nil, ctx.Err()
	case res := <-ch:
		return res.resp, res.err
	}
}

// StreamTransport speaks newline-delimited JSON-RPC over a reader/writer
// pair. It underpins StdioTransport and the in-memory pipe transport used
// in tests.
type StreamTransport struct {
	w  io.Writer
	rc io.Closer
	wc io.Closer

	writeMu sync.Mutex

	router *router
	done   chan struct{}

	closeOnce sync.Once

	// onFail converts the raw cause of a stopped read loop into the
	// terminal error delivered to callers. StdioTransport uses it to
	// attach the process exit status and stderr tail.
	onFail func(cause error) error
}

// NewStreamTransport creates a transport reading responses from r and
// writing requests to w. If r or w implement io.Closer they are closed
// when the transport closes.
func NewStreamTransport(r io.Reader, w io.Writer) *StreamTransport {
	return newStreamTransport(r, w, nil)
}

func newStreamTransport(r io.Reader, w io.Writer, onFail func(error) error) *StreamTransport {
	t := &StreamTransport{
		w:      w,
		router: newRouter(),
		done:   make(chan struct{}),
		onFail: onFail,
	}
	if c, ok := r.(io.Closer); ok {
		t.rc = c
	}
	if c, ok := w.(io.Closer); ok {
		t.wc = c
	}

	go t.readLoop(r)

	return t
}

// Send transmits req and blocks until its response arrives, ctx is done,
// or the transport fails.
func (t *StreamTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var id int64
	if err := json.Unmarshal(req.ID, &id); err != nil {
		return nil, fmt.Errorf("invalid request ID: %w", err)
	}

	ch, err := t.router.register(id)
	if err != nil {
		return nil, err
	}

	if err := t.writeFrame(req); err != nil {
		if ferr := t.router.unregister(id); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	return t.router.await(ctx, id, ch)
}

// Notify transmits a request without waiting for a response.
func (t *StreamTransport) Notify(ctx context.Context, req *protocol.Request) error {
	if err := t.router.sendable(); err != nil {
		return err
	}
	return t.writeFrame(req)
}

// Close shuts the transport down: both stream ends are closed, the read
// loop is waited out, and any still-waiting calls fail. Safe to call more
// than once.
func (t *StreamTransport) Close() error {
	t.closeOnce.Do(func() {
		t.router.markClosed()
		if t.wc != nil {
			_ = t.wc.Close()
		}
		if t.rc != nil {
			_ = t.rc.Close()
		}
	})
	<-t.done
	return nil
}

func (t *StreamTransport) writeFrame(req *protocol.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	t.writeMu.Lock()
	_, err = t.w.Write(append(data, '\n'))
	t.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

func (t *StreamTransport) readLoop(r io.Reader) {
	defer close(t.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := t.router.dispatch(line); err != nil {
			return
		}
	}

	cause := scanner.Err()

	var term error
	switch {
	case t.onFail != nil:
		term = t.onFail(cause)
	case t.router.isClosed():
		term = ErrClosed
	case cause != nil:
		term = fmt.Errorf("read stream: %w", cause)
	default:
		term = fmt.Errorf("read stream: %w", io.ErrUnexpectedEOF)
	}

	t.router.poison(term)
}
