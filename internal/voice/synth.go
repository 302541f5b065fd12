package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Synthesizer calls a Google-style text:synthesize REST endpoint and
// returns raw MP3 audio. Failures here are non-fatal to the chat response;
// the orchestrator logs them and carries on without audio.
type Synthesizer struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   zerolog.Logger
}

// SynthConfig configures the synthesis backend.
type SynthConfig struct {
	Endpoint string // e.g. https://texttospeech.googleapis.com
	APIKey   string
	Timeout  time.Duration
}

// NewSynthesizer creates a synthesis client, or nil when the config names
// no endpoint or key — the caller-visible signal that voice is off.
func NewSynthesizer(cfg SynthConfig, logger zerolog.Logger) *Synthesizer {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Synthesizer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With().Str("component", "tts").Logger(),
	}
}

type synthesizeRequest struct {
	Input struct {
		SSML string `json:"ssml"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts a render spec into MP3 bytes.
func (s *Synthesizer) Synthesize(ctx context.Context, spec *RenderSpec) ([]byte, error) {
	start := time.Now()

	var sr synthesizeRequest
	sr.Input.SSML = spec.SSML
	sr.Voice.LanguageCode = spec.LanguageCode
	sr.Voice.Name = spec.VoiceName
	sr.AudioConfig.AudioEncoding = "MP3"
	sr.AudioConfig.SpeakingRate = spec.SpeakingRate
	sr.AudioConfig.Pitch = spec.Pitch

	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := s.endpoint + "/v1/text:synthesize?key=" + s.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("synthesis error (status %d): %s", resp.StatusCode, string(errBody))
	}

	var parsed synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode synthesis response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}

	s.logger.Debug().
		Str("voice", spec.VoiceName).
		Int("audioBytes", len(audio)).
		Dur("took", time.Since(start)).
		Msg("synthesis complete")

	return audio, nil
}
