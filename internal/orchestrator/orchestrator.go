// Package orchestrator wires catalog resolution, prompt composition,
// the context window, generation and voice rendering into one Respond
// call. It owns the effective-configuration precedence rules and the
// memory consent gate; collaborators below it stay policy-free.
package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nanban-ai/nanban/internal/catalog"
	"github.com/nanban-ai/nanban/internal/conversation"
	"github.com/nanban-ai/nanban/internal/llm"
	"github.com/nanban-ai/nanban/internal/prompt"
	"github.com/nanban-ai/nanban/internal/store"
	"github.com/nanban-ai/nanban/internal/voice"
)

// ErrEmptyMessage is the single caller-visible refusal: a request with
// neither message text nor an image has nothing to respond to.
var ErrEmptyMessage = errors.New("orchestrator: empty message")

// Generator produces reply text. *llm.Client satisfies it; tests
// substitute fakes.
type Generator interface {
	GenerateText(ctx context.Context, instruction string, history []conversation.Turn, userMessage string, persona catalog.Persona) llm.Result
	GenerateFromImage(ctx context.Context, instruction, userMessage string, imageData []byte, mimeType string, persona catalog.Persona) llm.Result
}

// Request is one turn's worth of input. History and Memory are
// snapshots loaded by the caller; the orchestrator never touches
// storage itself.
type Request struct {
	Message   string
	ImageData []byte
	ImageMIME string

	Dialect  catalog.Dialect
	Persona  catalog.Persona
	UserName string

	// Explicit per-request overrides. Empty means "not set".
	Mood      string
	ReplyMode prompt.ReplyMode

	History []conversation.Turn
	Memory  *store.Memory
	Voice   bool
}

// Reply is the terminal outcome of a turn. Text is always present;
// Audio is nil whenever voice is off, unconfigured, or synthesis
// failed.
type Reply struct {
	Text        string
	Fallback    bool
	Audio       []byte
	Suggestions []string
}

// Orchestrator is the response engine facade. Safe for concurrent use.
type Orchestrator struct {
	catalog  *catalog.Catalog
	composer *prompt.Composer
	gen      Generator
	voice    *voice.Engine
	maxTurns int
	logger   zerolog.Logger
}

// New builds an orchestrator. A nil voice engine disables audio.
func New(cat *catalog.Catalog, gen Generator, ve *voice.Engine, logger zerolog.Logger) *Orchestrator {
	if ve == nil {
		ve = voice.NewEngine(nil, logger)
	}
	return &Orchestrator{
		catalog:  cat,
		composer: prompt.NewComposer(),
		gen:      gen,
		voice:    ve,
		maxTurns: conversation.DefaultMaxTurns,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Respond runs one turn: validate, resolve effective configuration,
// compose, window, generate, optionally synthesize. Every valid request
// reaches a Reply; generation trouble surfaces as Fallback text, not as
// an error.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (*Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" && len(req.ImageData) == 0 {
		return nil, ErrEmptyMessage
	}

	dialect := o.catalog.ResolveDialect(req.Dialect)
	persona := o.catalog.ResolvePersona(req.Persona)
	mood, mode := o.effective(req)
	facts := consentedFacts(req.Memory)

	instruction := o.composer.Compose(prompt.Input{
		Dialect:     dialect,
		Persona:     persona,
		UserName:    req.UserName,
		MemoryFacts: facts,
		Mood:        mood,
		ReplyMode:   mode,
	})

	var result llm.Result
	if len(req.ImageData) > 0 {
		// Vision turns stand alone; prior turns would anchor the reply
		// to stale context instead of the image.
		result = o.gen.GenerateFromImage(ctx, instruction, message, req.ImageData, req.ImageMIME, persona.ID)
	} else {
		history := conversation.Window(req.History, o.maxTurns)
		result = o.gen.GenerateText(ctx, instruction, history, message, persona.ID)
	}

	reply := &Reply{
		Text:        result.Text,
		Fallback:    result.Fallback,
		Suggestions: suggestions(persona.ID, len(req.History) == 0),
	}

	if req.Voice && o.voice.Enabled() {
		if spec := o.voice.Render(result.Text, dialect.ID, persona.ID); spec != nil {
			audio, err := o.voice.Synthesize(ctx, spec)
			if err != nil {
				o.logger.Warn().Err(err).Msg("speech synthesis failed, replying without audio")
			} else {
				reply.Audio = audio
			}
		}
	}
	return reply, nil
}

// effective applies the precedence rules for mood and reply mode:
// explicit request, then consented memory, then the fixed default.
func (o *Orchestrator) effective(req Request) (mood string, mode prompt.ReplyMode) {
	mood = req.Mood
	mode = req.ReplyMode

	if req.Memory != nil && req.Memory.Consent == store.ConsentGranted {
		if mood == "" {
			mood = req.Memory.Mood
		}
		if mode == "" {
			mode = prompt.ReplyMode(req.Memory.ReplyMode)
		}
	}
	if mode == "" {
		mode = prompt.DefaultReplyMode
	}
	return mood, mode
}

// consentedFacts returns memory facts only under explicit granted
// consent. Denied and unset both read as empty.
func consentedFacts(m *store.Memory) string {
	if m == nil || m.Consent != store.ConsentGranted {
		return ""
	}
	return m.Facts
}

// Quick-reply hints shown under a reply. First contact gets icebreakers;
// ongoing chats get persona-flavored continuations.
var (
	firstContactSuggestions = []string{
		"வணக்கம்! நீ யாரு?",
		"தமிழ்ல பேசலாமா?",
		"இன்னைக்கு என்ன scene?",
	}
	ongoingSuggestions = map[catalog.Persona][]string{
		catalog.PersonaJaliana: {
			"ஒரு joke சொல்லு மச்சி",
			"இன்னைக்கு mood எப்படி?",
			"வேற என்ன விஷேசம்?",
		},
		catalog.PersonaAmaithiyana: {
			"கொஞ்சம் பேசலாமா?",
			"மனசு கொஞ்சம் heavy-ஆ இருக்கு",
			"நல்ல விஷயம் ஒண்ணு சொல்லு",
		},
		catalog.PersonaThelivana: {
			"ஒரு advice வேணும்",
			"நேரடியா சொல்லு",
			"இது சரியா தப்பா?",
		},
		catalog.PersonaVilakkamana: {
			"இத விளக்கமா சொல்லுங்க",
			"ஒரு கதை சொல்லுங்க",
			"இன்னும் கொஞ்சம் சொல்லுங்க",
		},
	}
)

func suggestions(persona catalog.Persona, firstContact bool) []string {
	if firstContact {
		return firstContactSuggestions
	}
	if s, ok := ongoingSuggestions[persona]; ok {
		return s
	}
	return ongoingSuggestions[catalog.DefaultPersona]
}
