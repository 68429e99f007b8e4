package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"photoreel/internal/domain"
)

func TestGeminiEnhancerParsesCandidateText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key query param")
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, "sunset over the pier") {
			t.Errorf("user prompt missing from instruction: %+v", req.Contents)
		}
		resp := geminiResponse{}
		resp.Candidates = []struct {
			Content geminiContent `json:"content"`
		}{{Content: geminiContent{Parts: []geminiPart{{Text: "  Golden light sweeps across the pier...  "}}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	enhancer, err := NewGeminiEnhancer(GeminiOptions{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := enhancer.Enhance(context.Background(), "sunset over the pier", "pending_photos/a.jpg")
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if got != "Golden light sweeps across the pier..." {
		t.Errorf("unexpected enhancement %q", got)
	}
}

func TestGeminiEnhancerWrapsAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	enhancer, err := NewGeminiEnhancer(GeminiOptions{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	_, err = enhancer.Enhance(context.Background(), "x", "ref")
	var ese *domain.ExternalServiceError
	if !errors.As(err, &ese) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
	if !strings.Contains(ese.Error(), "quota exceeded") {
		t.Errorf("error should carry API message, got %q", ese.Error())
	}
}

func TestGeminiEnhancerRequiresKey(t *testing.T) {
	if _, err := NewGeminiEnhancer(GeminiOptions{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestStaticEnhancer(t *testing.T) {
	enhancer := NewStaticEnhancer()
	got, err := enhancer.Enhance(context.Background(), "a dog chasing waves", "ref")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "A Dog Chasing Waves") {
		t.Errorf("subject missing from enhancement: %q", got)
	}

	empty, err := enhancer.Enhance(context.Background(), "   ", "ref")
	if err != nil {
		t.Fatal(err)
	}
	if empty == "" {
		t.Error("fallback enhancement should not be empty")
	}
}
