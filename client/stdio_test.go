package client_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/dopplerkit/dopplermcp/client"
)

func stubTransport(t *testing.T, opts ...client.StdioTransportOption) *client.StdioTransport {
	t.Helper()

	opts = append([]client.StdioTransportOption{client.WithCloseGrace(500 * time.Millisecond)}, opts...)
	transport, err := client.NewStdioTransport("go", []string{"run", "./testdata/stubserver/main.go"}, opts...)
	if err != nil {
		t.Fatalf("failed to create transport: %v", err)
	}
	t.Cleanup(func() { _ = transport.Close() })
	return transport
}

func TestStdioTransport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	t.Run("spawns and communicates with subprocess", func(t *testing.T) {
		transport := stubTransport(t)

		s := client.New(transport, client.WithTimeout(30*time.Second))

		info, err := s.Initialize(context.Background())
		if err != nil {
			t.Fatalf("initialize failed: %v", err)
		}
		if info.Name != "stub-doppler" {
			t.Errorf("server name = %q, want %q", info.Name, "stub-doppler")
		}

		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("passes extra environment to the child", func(t *testing.T) {
		transport := stubTransport(t, client.WithEnv("STUB_TOKEN=dp.st.test-token"))

		s := client.New(transport, client.WithTimeout(30*time.Second))
		if _, err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}

		result, err := s.Call(context.Background(), "env", nil)
		if err != nil {
			t.Fatalf("env call failed: %v", err)
		}
		if result != "dp.st.test-token" {
			t.Errorf("env = %v, want dp.st.test-token", result)
		}
	})

	t.Run("handles process not found", func(t *testing.T) {
		_, err := client.NewStdioTransport("nonexistent-command-that-should-not-exist", nil)
		if err == nil {
			t.Fatal("expected error for nonexistent command")
		}

		var startErr *client.StartError
		if !errors.As(err, &startErr) {
			t.Fatalf("expected *client.StartError, got %T", err)
		}
		if startErr.Command != "nonexistent-command-that-should-not-exist" {
			t.Errorf("command = %q", startErr.Command)
		}
	})
}

func TestStdioTransport_ProcessExit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test")
	}

	t.Run("crash surfaces exit error with stderr tail", func(t *testing.T) {
		transport := stubTransport(t)

		s := client.New(transport, client.WithTimeout(30*time.Second))
		if _, err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}

		_, err := s.Call(context.Background(), "crash", nil)
		if err == nil {
			t.Fatal("expected error after crash")
		}

		var exitErr *client.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("expected *client.ExitError, got %v", err)
		}
		if exitErr.Err == nil {
			t.Error("expected non-nil exit status")
		}
		if !bytes.Contains(exitErr.Stderr, []byte("token rejected")) {
			t.Errorf("stderr tail = %q, want it to contain %q", exitErr.Stderr, "token rejected")
		}
		if !bytes.Contains(transport.StderrTail(), []byte("token rejected")) {
			t.Error("expected StderrTail to retain the crash output")
		}

		// Dead process: further calls fail fast with the same error.
		if _, err := s.Call(context.Background(), "ping", nil); !errors.As(err, &exitErr) {
			t.Errorf("call after crash: expected *client.ExitError, got %v", err)
		}

		// Close is still safe after the process is gone.
		if err := s.Close(); err != nil {
			t.Errorf("close after crash: %v", err)
		}
	})

	t.Run("garbage output fails the call but not the session", func(t *testing.T) {
		transport := stubTransport(t)

		s := client.New(transport, client.WithTimeout(30*time.Second))
		if _, err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}

		_, err := s.Call(context.Background(), "garbage", nil)
		var malformed *client.MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Fatalf("expected *client.MalformedResponseError, got %v", err)
		}

		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("ping after garbage line: %v", err)
		}
	})

	t.Run("silent server times out without killing the session", func(t *testing.T) {
		transport := stubTransport(t)

		s := client.New(transport, client.WithTimeout(30*time.Second))
		if _, err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err := s.Call(ctx, "silent", nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline error, got %v", err)
		}

		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("ping after timeout: %v", err)
		}
	})
}

func TestStdioTransport_Close(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	transport, err := client.NewStdioTransport("cat", nil,
		client.WithCloseGrace(500*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create transport: %v", err)
	}

	if err := transport.Close(); err != nil {
		t.Errorf("close returned error: %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Errorf("second close returned error: %v", err)
	}
}

func TestMain(m *testing.M) {
	if err := os.MkdirAll("testdata/stubserver", 0755); err != nil {
		os.Exit(1)
	}

	// A minimal line-oriented JSON-RPC server with failure modes the
	// transport tests can trigger on demand.
	stubServer := `package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

type request struct {
	JSONRPC string          ` + "`json:\"jsonrpc\"`" + `
	ID      json.RawMessage ` + "`json:\"id\"`" + `
	Method  string          ` + "`json:\"method\"`" + `
	Params  json.RawMessage ` + "`json:\"params,omitempty\"`" + `
}

type response struct {
	JSONRPC string          ` + "`json:\"jsonrpc\"`" + `
	ID      json.RawMessage ` + "`json:\"id\"`" + `
	Result  any             ` + "`json:\"result\"`" + `
}

func reply(id json.RawMessage, result any) {
	data, _ := json.Marshal(response{JSONRPC: "2.0", ID: id, Result: result})
	os.Stdout.Write(append(data, '\n'))
}

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		if len(req.ID) == 0 || string(req.ID) == "null" {
			continue // notification
		}

		switch req.Method {
		case "initialize":
			reply(req.ID, map[string]any{
				"protocolVersion": "2024-11-05",
				"serverInfo":      map[string]any{"name": "stub-doppler", "version": "0.1.0"},
				"capabilities":    map[string]any{"tools": map[string]any{}},
			})
		case "env":
			reply(req.ID, os.Getenv("STUB_TOKEN"))
		case "crash":
			fmt.Fprintln(os.Stderr, "fatal: doppler token rejected")
			os.Exit(2)
		case "garbage":
			os.Stdout.WriteString("!!! not json !!!\n")
		case "silent":
			// no response
		default:
			reply(req.ID, map[string]any{})
		}
	}
}
`
	if err := os.WriteFile("testdata/stubserver/main.go", []byte(stubServer), 0644); err != nil {
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll("testdata")

	os.Exit(code)
}
