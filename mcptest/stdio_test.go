package mcptest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestServeStdio(t *testing.T) {
	t.Run("answers a garbage line with a null-id parse error", func(t *testing.T) {
		srv := NewServer(Info{Name: "fake", Version: "0.0.1"})

		in := strings.NewReader("this is not json\n" +
			`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
		var out bytes.Buffer

		if err := srv.ServeStdio(context.Background(), in, &out); err != nil {
			t.Fatalf("serve: %v", err)
		}

		scanner := bufio.NewScanner(&out)
		if !scanner.Scan() {
			t.Fatal("no response to the garbage line")
		}
		first := scanner.Bytes()

		if !bytes.Contains(first, []byte(`"id":null`)) {
			t.Errorf("parse error response = %s, want id null on the wire", first)
		}

		var resp struct {
			ID    json.RawMessage `json:"id"`
			Error *struct {
				Code int `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(first, &resp); err != nil {
			t.Fatalf("unmarshal parse error response: %v", err)
		}
		if string(resp.ID) != "null" {
			t.Errorf("id = %s, want null", resp.ID)
		}
		if resp.Error == nil || resp.Error.Code != -32700 {
			t.Errorf("error = %+v, want code -32700", resp.Error)
		}

		// The loop keeps serving after garbage.
		if !scanner.Scan() {
			t.Fatal("no response to the ping after the garbage line")
		}
		if !bytes.Contains(scanner.Bytes(), []byte(`"id":1`)) {
			t.Errorf("ping response = %s, want id 1", scanner.Bytes())
		}
	})
}
