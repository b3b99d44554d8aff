package ingest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rawblock/isa-sentinel/pkg/models"
)

func TestHTTPSourcePollDecodesEventArray(t *testing.T) {
	want := []models.EventEnvelope{
		{Dimension: 0, EventHex: "aabb", DeltaT: 1},
		{Dimension: 1, EventHex: "ccdd", DeltaT: 2},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	got, err := src.Poll(t.Context())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHTTPSourcePollReturnsErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	if _, err := src.Poll(t.Context()); err == nil {
		t.Fatalf("expected an error on a non-200 response")
	}
}

func TestHTTPSourcePollReturnsErrorOnMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	if _, err := src.Poll(t.Context()); err == nil {
		t.Fatalf("expected an error on malformed JSON")
	}
}
