package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"photoreel/internal/domain"
)

const veoProviderName = "veo"

// VeoOptions configures the Veo video generation client.
type VeoOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	OutputPrefix string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// Veo drives the Veo generate-videos API: it starts a long-running operation
// and polls it until completion or the ctx deadline.
type Veo struct {
	apiKey       string
	model        string
	baseURL      string
	outputPrefix string
	pollInterval time.Duration
	client       *http.Client
}

func NewVeo(opts VeoOptions) (*Veo, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("veo api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "veo-2.0-generate-001"
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Veo{
		apiKey:       opts.APIKey,
		model:        model,
		baseURL:      baseURL,
		outputPrefix: strings.TrimRight(opts.OutputPrefix, "/"),
		pollInterval: interval,
		client:       client,
	}, nil
}

var _ Generator = (*Veo)(nil)

type veoStartRequest struct {
	Instances  []veoInstance  `json:"instances"`
	Parameters *veoParameters `json:"parameters,omitempty"`
}

type veoInstance struct {
	Prompt string    `json:"prompt,omitempty"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoImage struct {
	StorageURI string `json:"storageUri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

type veoParameters struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	DurationSeconds  int    `json:"durationSeconds,omitempty"`
	NumberOfVideos   int    `json:"numberOfVideos,omitempty"`
	OutputStorageURI string `json:"storageUri,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// Generate starts a generation operation and polls until it finishes. A ctx
// deadline bounds the polling; expiry surfaces as an ExternalServiceError and
// flows through the normal retry path.
func (v *Veo) Generate(ctx context.Context, enhancedPrompt, photoRef string) (string, error) {
	op, err := v.start(ctx, enhancedPrompt, photoRef)
	if err != nil {
		return "", err
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return "", &domain.ExternalServiceError{Service: veoProviderName, Err: fmt.Errorf("operation %s: %w", op.Name, ctx.Err())}
		case <-time.After(v.pollInterval):
		}
		op, err = v.poll(ctx, op.Name)
		if err != nil {
			return "", err
		}
	}

	if op.Error != nil {
		return "", &domain.ExternalServiceError{
			Service: veoProviderName,
			Err:     fmt.Errorf("operation failed: %s", op.Error.Message),
		}
	}
	if op.Response != nil {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) > 0 && samples[0].Video.URI != "" {
			return samples[0].Video.URI, nil
		}
	}
	return "", &domain.ExternalServiceError{Service: veoProviderName, Err: errors.New("operation finished without a video")}
}

func (v *Veo) start(ctx context.Context, enhancedPrompt, photoRef string) (*veoOperation, error) {
	payload := veoStartRequest{
		Instances: []veoInstance{{
			Prompt: enhancedPrompt,
			Image: &veoImage{
				StorageURI: photoRef,
				MimeType:   guessImageMime(photoRef),
			},
		}},
		Parameters: &veoParameters{
			AspectRatio:      "16:9",
			DurationSeconds:  8,
			NumberOfVideos:   1,
			OutputStorageURI: v.outputPrefix,
			PersonGeneration: "allow_adult",
		},
	}
	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", v.baseURL, url.PathEscape(v.model))
	var op veoOperation
	if err := v.invoke(ctx, http.MethodPost, endpoint, payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" && !op.Done {
		return nil, &domain.ExternalServiceError{Service: veoProviderName, Err: errors.New("start returned no operation name")}
	}
	return &op, nil
}

func (v *Veo) poll(ctx context.Context, name string) (*veoOperation, error) {
	endpoint := fmt.Sprintf("%s/%s", v.baseURL, strings.TrimPrefix(name, "/"))
	var op veoOperation
	if err := v.invoke(ctx, http.MethodGet, endpoint, nil, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

func (v *Veo) invoke(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &domain.ExternalServiceError{Service: veoProviderName, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &domain.ExternalServiceError{Service: veoProviderName, Err: err}
	}
	q := req.URL.Query()
	q.Set("key", v.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return &domain.ExternalServiceError{Service: veoProviderName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return &domain.ExternalServiceError{
			Service: veoProviderName,
			Err:     fmt.Errorf("veo status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ExternalServiceError{Service: veoProviderName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func guessImageMime(ref string) string {
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(ref))); t != "" {
		return t
	}
	return "image/jpeg"
}
