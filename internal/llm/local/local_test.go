package local

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docs_organiser/internal/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	p := New(server.URL, "llama3")
	p.client = server.Client()
	p.apiURL = server.URL
	return p, server
}

func TestProposeFilenameSuccess(t *testing.T) {
	p, server := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []choice{{Message: message{Content: "meeting_notes_march"}}},
		})
	})
	defer server.Close()

	name, _, err := p.ProposeFilename(context.Background(), llm.Request{Text: "meeting notes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "meeting_notes_march" {
		t.Errorf("expected proposed filename, got %q", name)
	}
}

func TestProposeFilenameUnreachableServer(t *testing.T) {
	p := New("http://127.0.0.1:1", "llama3")
	_, _, err := p.ProposeFilename(context.Background(), llm.Request{Text: "doc"})
	if err == nil {
		t.Fatal("expected an error for an unreachable server")
	}
	llmErr, ok := err.(*llm.Error)
	if !ok || llmErr.Kind != llm.KindNetwork {
		t.Fatalf("expected KindNetwork, got %v", err)
	}
}

func TestBaseURLDefaultsAndSuffixHandling(t *testing.T) {
	p := New("", "llama3")
	if p.apiURL != defaultBaseURL+"/chat/completions" {
		t.Errorf("unexpected default apiURL: %s", p.apiURL)
	}

	p2 := New("http://localhost:9999/v1/chat/completions", "llama3")
	if p2.apiURL != "http://localhost:9999/v1/chat/completions" {
		t.Errorf("expected no double suffix, got %s", p2.apiURL)
	}
}
