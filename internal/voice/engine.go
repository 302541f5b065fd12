// Package voice derives persona-consistent speech parameters and SSML
// markup from generated text, and hands them to the remote synthesis
// backend. Voice is always optional: with no backend configured the
// engine renders nothing and the text response is unaffected.
package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nanban-ai/nanban/internal/catalog"
)

// maxSpokenChars bounds what gets synthesized. The chat transcript keeps
// the full text; only the spoken form is truncated.
const maxSpokenChars = 500

// RenderSpec is the fully resolved synthesis input for one reply.
type RenderSpec struct {
	VoiceName    string
	LanguageCode string
	SpeakingRate float64
	Pitch        float64
	SSML         string
}

// dialectVoice is the per-dialect base voice selection.
type dialectVoice struct {
	name  string
	rate  float64
	pitch float64
}

// personaModifier adjusts the dialect base per persona: rate multiplies,
// pitch adds.
type personaModifier struct {
	rateAdjust  float64
	pitchAdjust float64
}

var dialectVoices = map[catalog.Dialect]dialectVoice{
	catalog.DialectChennai: {name: "ta-IN-Wavenet-A", rate: 1.15, pitch: 1.0}, // fast-paced
	catalog.DialectKovai:   {name: "ta-IN-Wavenet-B", rate: 0.92, pitch: 0.0}, // calm
	catalog.DialectMadurai: {name: "ta-IN-Wavenet-A", rate: 1.0, pitch: -2.0}, // authority
	catalog.DialectNellai:  {name: "ta-IN-Wavenet-A", rate: 1.1, pitch: 2.0},  // lively
	catalog.DialectEelam:   {name: "ta-IN-Wavenet-B", rate: 0.95, pitch: 0.0}, // gentle
	catalog.DialectCommon:  {name: "ta-IN-Wavenet-A", rate: 1.0, pitch: 0.0},  // neutral
}

var personaModifiers = map[catalog.Persona]personaModifier{
	catalog.PersonaJaliana:     {rateAdjust: 1.05, pitchAdjust: 1.0},  // energetic
	catalog.PersonaAmaithiyana: {rateAdjust: 0.92, pitchAdjust: -0.5}, // peaceful
	catalog.PersonaThelivana:   {rateAdjust: 1.0, pitchAdjust: 0.0},   // professional
	catalog.PersonaVilakkamana: {rateAdjust: 0.95, pitchAdjust: -1.0}, // explanatory
}

// strippedEmojis is the fixed set removed before synthesis.
var strippedEmojis = []string{
	"😄", "🔥", "😊", "😅", "🎉", "👍", "💪", "🚀",
	"⭐", "✨", "💯", "😂", "🤣", "😍", "🥰", "😁",
}

// Engine derives speech parameters. It is safe for concurrent use.
type Engine struct {
	synth  *Synthesizer // nil when no backend is configured
	logger zerolog.Logger
}

// NewEngine creates a voice engine. synth may be nil, which disables
// rendering entirely.
func NewEngine(synth *Synthesizer, logger zerolog.Logger) *Engine {
	return &Engine{synth: synth, logger: logger.With().Str("component", "voice").Logger()}
}

// Enabled reports whether a synthesis backend is configured.
func (e *Engine) Enabled() bool {
	return e != nil && e.synth != nil
}

// Render resolves voice, rate, pitch and markup for text. It returns nil
// when no synthesis backend is configured; callers must treat nil as the
// normal voice-off outcome, not an error.
func (e *Engine) Render(text string, dialect catalog.Dialect, persona catalog.Persona) *RenderSpec {
	if !e.Enabled() {
		return nil
	}

	base, ok := dialectVoices[dialect]
	if !ok {
		base = dialectVoices[catalog.DefaultDialect]
	}
	mod, ok := personaModifiers[persona]
	if !ok {
		mod = personaModifiers[catalog.DefaultPersona]
	}

	cleaned := CleanForSpeech(text)
	if runes := []rune(cleaned); len(runes) > maxSpokenChars {
		cleaned = string(runes[:maxSpokenChars]) + "..."
	}

	return &RenderSpec{
		VoiceName:    base.name,
		LanguageCode: "ta-IN",
		SpeakingRate: base.rate * mod.rateAdjust,
		Pitch:        base.pitch + mod.pitchAdjust,
		SSML:         ToSSML(cleaned),
	}
}

// Synthesize sends a rendered spec to the configured backend.
func (e *Engine) Synthesize(ctx context.Context, spec *RenderSpec) ([]byte, error) {
	if !e.Enabled() {
		return nil, fmt.Errorf("no synthesis backend configured")
	}
	return e.synth.Synthesize(ctx, spec)
}

// CleanForSpeech strips the fixed emoji set and collapses whitespace runs
// to single spaces.
func CleanForSpeech(text string) string {
	for _, emoji := range strippedEmojis {
		text = strings.ReplaceAll(text, emoji, "")
	}
	return strings.Join(strings.Fields(text), " ")
}

// pauseRules maps sentence punctuation to timed breaks. Order matters:
// "..." must be rewritten before ".".
var pauseRules = []struct {
	punct string
	br    string
}{
	{"!", `<break time="300ms"/>`},
	{"?", `<break time="300ms"/>`},
	{"...", `<break time="500ms"/>`},
	{".", `<break time="200ms"/>`},
	{",", `<break time="150ms"/>`},
}

// ToSSML converts punctuation to timed pause markup and wraps the result
// in a single speak tag.
func ToSSML(text string) string {
	for _, rule := range pauseRules {
		text = strings.ReplaceAll(text, rule.punct, rule.br)
	}
	return "<speak>" + text + "</speak>"
}
