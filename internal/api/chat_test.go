package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sago-labs/sago/internal/testutil"
)

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestChatSend(t *testing.T) {
	stub := &stubRelay{reply: "hello from the model"}
	srv := newTestServer(t, stub)

	rec := postJSON(t, srv, "/api/v1/chat",
		`{"sessionKey":"alice_Sago_1","username":"alice","agentName":"Sago","message":"hi"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "hello from the model" {
		t.Errorf("reply = %q", resp.Reply)
	}

	if stub.lastReq.SessionKey != "alice_Sago_1" || stub.lastReq.Message != "hi" {
		t.Errorf("relay request = %+v", stub.lastReq)
	}
}

func TestChatSendForwardsImageFields(t *testing.T) {
	stub := &stubRelay{reply: "a cat"}
	srv := newTestServer(t, stub)

	rec := postJSON(t, srv, "/api/v1/chat",
		`{"sessionKey":"alice_Sago_1","agentName":"Sago","imageData":"AQID","imageMimeType":"image/png"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if stub.lastReq.ImageData != "AQID" || stub.lastReq.ImageMimeType != "image/png" {
		t.Errorf("relay request = %+v", stub.lastReq)
	}
}

func TestChatSendBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"sessionKey":`},
		{"missing session key", `{"message":"hi"}`},
		{"empty turn", `{"sessionKey":"k"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubRelay{reply: "ok"})

			rec := postJSON(t, srv, "/api/v1/chat", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}

			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error envelope: %v", err)
			}
			if resp.Error == "" {
				t.Error("error envelope is empty")
			}
		})
	}
}

func TestChatSendRelayFailure(t *testing.T) {
	stub := &stubRelay{err: errors.New("model overloaded: status 429")}
	srv := newTestServer(t, stub)

	rec := postJSON(t, srv, "/api/v1/chat",
		`{"sessionKey":"k","message":"hi"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if resp.Error == "" {
		t.Error("error envelope is empty")
	}
	// The provider's own message travels in details so clients can see
	// what actually went wrong.
	if !strings.Contains(resp.Details, "model overloaded: status 429") {
		t.Errorf("details = %q, want provider message", resp.Details)
	}
}

func TestChatStream(t *testing.T) {
	stub := &stubRelay{chunks: []string{"Hel", "lo ", "world"}, reply: "Hello world"}
	srv := newTestServer(t, stub)

	rec := postJSON(t, srv, "/api/v1/chat/stream",
		`{"sessionKey":"alice_Sago_1","agentName":"Sago","message":"hi"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content-type = %q", ct)
	}

	events := testutil.ParseSSEEvents(t, rec.Body.String())

	deltas := testutil.FindAllEvents(events, "delta")
	if len(deltas) != 3 {
		t.Fatalf("delta events = %d, want 3", len(deltas))
	}
	var assembled strings.Builder
	for _, e := range deltas {
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal([]byte(e.Data), &payload); err != nil {
			t.Fatalf("decode delta payload %q: %v", e.Data, err)
		}
		assembled.WriteString(payload.Delta)
	}
	if assembled.String() != "Hello world" {
		t.Errorf("assembled = %q, want %q", assembled.String(), "Hello world")
	}

	done := testutil.FindEvent(events, "done")
	if done == nil {
		t.Fatal("no done event")
	}
	if done.Data != `{"done":true}` {
		t.Errorf("done payload = %q", done.Data)
	}
	if last := events[len(events)-1]; last.Type != "done" {
		t.Errorf("last event = %q, want done", last.Type)
	}
	if testutil.FindEvent(events, "error") != nil {
		t.Error("unexpected error event in successful stream")
	}
}

func TestChatStreamProviderError(t *testing.T) {
	stub := &stubRelay{chunks: []string{"par"}, err: errors.New("stream cut")}
	srv := newTestServer(t, stub)

	rec := postJSON(t, srv, "/api/v1/chat/stream",
		`{"sessionKey":"k","message":"hi"}`)

	// Headers were committed before the failure, so the status is 200
	// and the error travels in-band.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	events := testutil.ParseSSEEvents(t, rec.Body.String())
	errEvent := testutil.FindEvent(events, "error")
	if errEvent == nil {
		t.Fatal("no error event")
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(errEvent.Data), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if !strings.Contains(payload.Error, "stream cut") {
		t.Errorf("error payload = %q, want relay message", payload.Error)
	}
	if testutil.FindEvent(events, "done") != nil {
		t.Error("done event present in failed stream")
	}
}

func TestChatStreamValidationBeforeHeaders(t *testing.T) {
	srv := newTestServer(t, &stubRelay{})

	rec := postJSON(t, srv, "/api/v1/chat/stream", `{"sessionKey":"k"}`)

	// Validation happens before the SSE headers commit, so the client
	// still gets a real 400.
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}
}
