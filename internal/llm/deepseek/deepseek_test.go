package deepseek

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
	p := New("test-key", "")
	p.client = server.Client()
	p.apiURL = server.URL
	return p, server
}

func TestProposeFilenameParsesSuccessResponse(t *testing.T) {
	p, server := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []choice{{Message: message{Content: "quarterly_tax_filing"}}},
		})
	})
	defer server.Close()

	name, _, err := p.ProposeFilename(context.Background(), llm.Request{Text: "tax document content"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "quarterly_tax_filing" {
		t.Errorf("expected proposed filename, got %q", name)
	}
}

func TestProposeFilenameClassifiesAuthError(t *testing.T) {
	p, server := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(chatResponse{Error: &apiError{Message: "invalid api key"}})
	})
	defer server.Close()

	_, _, err := p.ProposeFilename(context.Background(), llm.Request{Text: "doc"})
	if err == nil {
		t.Fatal("expected an error")
	}
	llmErr, ok := err.(*llm.Error)
	if !ok || llmErr.Kind != llm.KindAuth {
		t.Fatalf("expected KindAuth, got %v", err)
	}
}

func TestProposeFilenameClassifiesRateLimit(t *testing.T) {
	p, server := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(chatResponse{Error: &apiError{Message: "rate limited"}})
	})
	defer server.Close()

	_, _, err := p.ProposeFilename(context.Background(), llm.Request{Text: "doc"})
	llmErr, ok := err.(*llm.Error)
	if !ok || llmErr.Kind != llm.KindRateLimit {
		t.Fatalf("expected KindRateLimit, got %v", err)
	}
}

func TestNameAndVisionSupport(t *testing.T) {
	p := New("key", "")
	if p.Name() != "deepseek" {
		t.Errorf("unexpected name: %s", p.Name())
	}
	if p.SupportsVision() {
		t.Error("deepseek should not support vision")
	}
}
