package anthropic

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
	p := New("sk-ant-test-key", "")
	p.client = server.Client()
	p.apiURL = server.URL
	return p, server
}

func TestProposeFilenameParsesTextBlock(t *testing.T) {
	p, server := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{{Type: "text", Text: "contract_renewal_2025"}},
		})
	})
	defer server.Close()

	name, _, err := p.ProposeFilename(context.Background(), llm.Request{Text: "contract content"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "contract_renewal_2025" {
		t.Errorf("expected proposed filename, got %q", name)
	}
}

func TestProposeFilenameOmitsTemperatureForOpus41(t *testing.T) {
	var captured messagesRequest
	_, server := newOpusProvider(t, &captured)
	defer server.Close()
	if captured.Temperature != nil {
		t.Error("expected temperature to be omitted for opus-4.1 models")
	}
}

func newOpusProvider(t *testing.T, captured *messagesRequest) (*Provider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(captured)
		json.NewEncoder(w).Encode(messagesResponse{Content: []contentBlock{{Type: "text", Text: "name"}}})
	}))
	p := New("sk-ant-test-key", "claude-opus-4.1")
	p.client = server.Client()
	p.apiURL = server.URL
	_, _, _ = p.ProposeFilename(context.Background(), llm.Request{Text: "doc"})
	return p, server
}

func TestNameAndVisionSupport(t *testing.T) {
	p := New("sk-ant-key", "")
	if p.Name() != "anthropic" {
		t.Errorf("unexpected name: %s", p.Name())
	}
	if p.SupportsVision() {
		t.Error("anthropic should not support vision")
	}
}

func TestClassifyStatusMapsUnauthorized(t *testing.T) {
	err := classifyStatus(http.StatusUnauthorized, &messagesResponse{Error: &apiError{Message: "bad key"}})
	llmErr, ok := err.(*llm.Error)
	if !ok || llmErr.Kind != llm.KindAuth {
		t.Fatalf("expected KindAuth, got %v", err)
	}
}

func TestClassifyStatusMapsRateLimit(t *testing.T) {
	err := classifyStatus(http.StatusTooManyRequests, &messagesResponse{Error: &apiError{Message: "slow down"}})
	llmErr, ok := err.(*llm.Error)
	if !ok || llmErr.Kind != llm.KindRateLimit {
		t.Fatalf("expected KindRateLimit, got %v", err)
	}
}
