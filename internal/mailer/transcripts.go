package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxTranscriptChars keeps prompts bounded when no summary exists.
const maxTranscriptChars = 4000

// VoiceClient reads call transcripts from the voice-analytics service.
type VoiceClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewVoiceClient returns nil when baseURL is empty.
func NewVoiceClient(baseURL, apiKey string, httpClient *http.Client) *VoiceClient {
	if baseURL == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &VoiceClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

type transcriptResponse struct {
	Summary    string `json:"summary"`
	Transcript string `json:"transcript"`
}

// Transcript prefers the call summary and falls back to the truncated
// raw transcript.
func (v *VoiceClient) Transcript(ctx context.Context, callID string) (string, error) {
	if v == nil {
		return "", errors.New("voice: not configured")
	}
	if callID == "" {
		return "", errors.New("voice: call id required")
	}
	endpoint := fmt.Sprintf("%s/calls/%s/transcript", v.baseURL, url.PathEscape(callID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice: fetch transcript: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("voice: transcript %s: status %d: %s", callID, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var body transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("voice: decode transcript: %w", err)
	}
	if s := strings.TrimSpace(body.Summary); s != "" {
		return s, nil
	}
	t := strings.TrimSpace(body.Transcript)
	if t == "" {
		return "", fmt.Errorf("voice: transcript %s is empty", callID)
	}
	if r := []rune(t); len(r) > maxTranscriptChars {
		t = string(r[:maxTranscriptChars])
	}
	return t, nil
}
