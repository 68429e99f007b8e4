package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"photoreel/internal/domain"
)

func newVeoForTest(t *testing.T, server *httptest.Server) *Veo {
	t.Helper()
	v, err := NewVeo(VeoOptions{
		APIKey:       "k",
		BaseURL:      server.URL,
		PollInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestVeoGeneratePollsUntilDone(t *testing.T) {
	var polls int
	mux := http.NewServeMux()
	mux.HandleFunc("POST /models/veo-2.0-generate-001:predictLongRunning", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"operations/op-1","done":false}`)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls < 3 {
			fmt.Fprint(w, `{"name":"operations/op-1","done":false}`)
			return
		}
		fmt.Fprint(w, `{"name":"operations/op-1","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"generated_videos/v1.mp4"}}]}}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ref, err := newVeoForTest(t, server).Generate(context.Background(), "prompt", "pending_photos/a.jpg")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ref != "generated_videos/v1.mp4" {
		t.Errorf("unexpected video ref %q", ref)
	}
	if polls != 3 {
		t.Errorf("expected 3 polls, got %d", polls)
	}
}

func TestVeoGenerateOperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"operations/op-2","done":true,"error":{"code":3,"message":"unsafe content"}}`)
	}))
	defer server.Close()

	_, err := newVeoForTest(t, server).Generate(context.Background(), "prompt", "ref")
	var ese *domain.ExternalServiceError
	if !errors.As(err, &ese) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsafe content") {
		t.Errorf("error should carry operation message: %v", err)
	}
}

func TestVeoGenerateDeadlineBoundsPolling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"operations/op-3","done":false}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := newVeoForTest(t, server).Generate(ctx, "prompt", "ref")
	var ese *domain.ExternalServiceError
	if !errors.As(err, &ese) {
		t.Fatalf("expected ExternalServiceError on deadline, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("deadline cause should be preserved: %v", err)
	}
}
