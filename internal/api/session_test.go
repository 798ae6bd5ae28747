package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t, &stubRelay{})

	rec := postJSON(t, srv, "/api/v1/session",
		`{"username":"alice","agentName":"Sago"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp createSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.SessionKey, "alice_Sago_") {
		t.Errorf("session key = %q, want alice_Sago_ prefix", resp.SessionKey)
	}
	if suffix := strings.TrimPrefix(resp.SessionKey, "alice_Sago_"); suffix == "" {
		t.Error("session key has no random suffix")
	}
}

func TestCreateSessionKeysAreUnique(t *testing.T) {
	srv := newTestServer(t, &stubRelay{})

	seen := map[string]bool{}
	for range 10 {
		rec := postJSON(t, srv, "/api/v1/session",
			`{"username":"alice","agentName":"Sago"}`)
		var resp createSessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if seen[resp.SessionKey] {
			t.Fatalf("duplicate session key %q", resp.SessionKey)
		}
		seen[resp.SessionKey] = true
	}
}

func TestCreateSessionBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"username":`},
		{"missing username", `{"agentName":"Sago"}`},
		{"missing agent", `{"username":"alice"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubRelay{})

			rec := postJSON(t, srv, "/api/v1/session", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
