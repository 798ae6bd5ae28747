package session

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr string
	}{
		{"user turn", NewUserMessage("hi"), ""},
		{"assistant turn", NewAssistantMessage("hello"), ""},
		{"image turn", NewUserImageMessage("look", "AQID", "image/png"), ""},
		{"bad role", Message{Role: "system", Content: "x"}, "invalid message role"},
		{"zero timestamp", Message{Role: RoleUser, Content: "x"}, "timestamp"},
		{
			"image without mime",
			Message{Role: RoleUser, ImageData: "AQID", Timestamp: NewUserMessage("").Timestamp},
			"set together",
		},
		{
			"mime without image",
			Message{Role: RoleUser, ImageMimeType: "image/png", Timestamp: NewUserMessage("").Timestamp},
			"set together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestMessageJSONOmitsEmptyImageFields(t *testing.T) {
	data, err := json.Marshal(NewUserMessage("hi"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "imageData") {
		t.Errorf("text turn serialized image fields: %s", data)
	}

	data, err = json.Marshal(NewUserImageMessage("look", "AQID", "image/png"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"imageData":"AQID"`) {
		t.Errorf("image turn missing payload: %s", data)
	}
}

func TestSessionAppendKeepsOrder(t *testing.T) {
	sess := &Session{Key: "k"}
	sess.Append(NewUserMessage("one"))
	sess.Append(NewAssistantMessage("two"), NewUserMessage("three"))

	if len(sess.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(sess.Messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if sess.Messages[i].Content != want {
			t.Errorf("messages[%d] = %q, want %q", i, sess.Messages[i].Content, want)
		}
	}
}
