package testutil

import "testing"

func TestParseSSEEvents(t *testing.T) {
	body := "event: delta\ndata: {\"delta\":\"Hel\"}\n\n" +
		"event: delta\ndata: {\"delta\":\"lo\"}\n\n" +
		": heartbeat comment\n" +
		"event: done\ndata: {\"done\":true}\n\n"

	events := ParseSSEEvents(t, body)
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}

	deltas := FindAllEvents(events, "delta")
	if len(deltas) != 2 {
		t.Errorf("delta events = %d, want 2", len(deltas))
	}
	if deltas[0].Data != `{"delta":"Hel"}` {
		t.Errorf("first delta = %q", deltas[0].Data)
	}

	done := FindEvent(events, "done")
	if done == nil || done.Data != `{"done":true}` {
		t.Errorf("done event = %+v", done)
	}
	if FindEvent(events, "error") != nil {
		t.Error("unexpected error event")
	}
}

func TestParseSSEEventsMultilineData(t *testing.T) {
	body := "event: delta\ndata: line one\ndata: line two\n\n"

	events := ParseSSEEvents(t, body)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Data != "line one\nline two" {
		t.Errorf("data = %q", events[0].Data)
	}
}

func TestParseSSEEventsDefaultType(t *testing.T) {
	events := ParseSSEEvents(t, "data: hi\n\n")
	if len(events) != 1 || events[0].Type != "message" {
		t.Errorf("events = %+v, want one message event", events)
	}
}
