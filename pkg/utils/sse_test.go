package utils

import (
	"net/http/httptest"
	"testing"
)

func TestSendSSEEventFormat(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := SendSSEEvent(rec, rec, "turn", 7, map[string]string{"text": "hi"}); err != nil {
		t.Fatalf("SendSSEEvent err: %v", err)
	}

	want := "id: 7\nevent: turn\ndata: {\"text\":\"hi\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("unexpected frame:\n%q\nwant\n%q", got, want)
	}
	if !rec.Flushed {
		t.Fatal("expected response to be flushed")
	}
}

func TestSendSSEEventWithoutID(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := SendSSEEvent(rec, rec, "snapshot", 0, []int{1}); err != nil {
		t.Fatalf("SendSSEEvent err: %v", err)
	}

	want := "event: snapshot\ndata: [1]\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("unexpected frame: %q", got)
	}
}
