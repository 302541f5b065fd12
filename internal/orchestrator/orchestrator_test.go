package orchestrator_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanban-ai/nanban/internal/catalog"
	"github.com/nanban-ai/nanban/internal/conversation"
	"github.com/nanban-ai/nanban/internal/llm"
	"github.com/nanban-ai/nanban/internal/orchestrator"
	"github.com/nanban-ai/nanban/internal/prompt"
	"github.com/nanban-ai/nanban/internal/store"
)

// fakeGenerator records the arguments of the last call and returns a
// canned result.
type fakeGenerator struct {
	result llm.Result

	instruction string
	history     []conversation.Turn
	message     string
	persona     catalog.Persona
	imageData   []byte
	imageCall   bool
}

func (f *fakeGenerator) GenerateText(_ context.Context, instruction string, history []conversation.Turn, userMessage string, persona catalog.Persona) llm.Result {
	f.instruction = instruction
	f.history = history
	f.message = userMessage
	f.persona = persona
	return f.result
}

func (f *fakeGenerator) GenerateFromImage(_ context.Context, instruction, userMessage string, imageData []byte, _ string, persona catalog.Persona) llm.Result {
	f.instruction = instruction
	f.message = userMessage
	f.persona = persona
	f.imageData = imageData
	f.imageCall = true
	return f.result
}

func newTestOrchestrator(gen orchestrator.Generator) *orchestrator.Orchestrator {
	return orchestrator.New(catalog.New(), gen, nil, zerolog.Nop())
}

func TestRespondRejectsEmptyRequest(t *testing.T) {
	o := newTestOrchestrator(&fakeGenerator{})
	_, err := o.Respond(context.Background(), orchestrator.Request{Message: "   "})
	assert.ErrorIs(t, err, orchestrator.ErrEmptyMessage)
}

func TestRespondTextTurn(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "வணக்கம் மச்சி!"}}
	o := newTestOrchestrator(gen)

	reply, err := o.Respond(context.Background(), orchestrator.Request{
		Message: "vanakkam",
		Dialect: catalog.DialectChennai,
		Persona: catalog.PersonaJaliana,
	})
	require.NoError(t, err)
	assert.Equal(t, "வணக்கம் மச்சி!", reply.Text)
	assert.False(t, reply.Fallback)
	assert.Nil(t, reply.Audio)

	assert.Equal(t, "vanakkam", gen.message)
	assert.Equal(t, catalog.PersonaJaliana, gen.persona)
	assert.Contains(t, gen.instruction, "SLANG: CHENNAI")
	assert.Contains(t, gen.instruction, "CHARACTER: JALIANA")
}

func TestRespondWindowsHistory(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "ok"}}
	o := newTestOrchestrator(gen)

	var history []conversation.Turn
	for i := 0; i < 15; i++ {
		history = append(history, conversation.Turn{Role: conversation.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	_, err := o.Respond(context.Background(), orchestrator.Request{Message: "hi", History: history})
	require.NoError(t, err)

	require.Len(t, gen.history, conversation.DefaultMaxTurns)
	assert.Equal(t, "m5", gen.history[0].Content)
	assert.Equal(t, "m14", gen.history[len(gen.history)-1].Content)
}

func TestRespondImageTurnOmitsHistory(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "nalla photo"}}
	o := newTestOrchestrator(gen)

	history := []conversation.Turn{{Role: conversation.RoleUser, Content: "earlier"}}
	reply, err := o.Respond(context.Background(), orchestrator.Request{
		ImageData: []byte{0xFF, 0xD8},
		ImageMIME: "image/jpeg",
		History:   history,
	})
	require.NoError(t, err)
	assert.Equal(t, "nalla photo", reply.Text)
	assert.True(t, gen.imageCall)
	assert.Equal(t, []byte{0xFF, 0xD8}, gen.imageData)
	assert.Nil(t, gen.history)
}

func TestMemoryFactsRequireGrantedConsent(t *testing.T) {
	cases := []struct {
		consent store.Consent
		want    bool
	}{
		{store.ConsentGranted, true},
		{store.ConsentDenied, false},
		{store.ConsentUnset, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.consent), func(t *testing.T) {
			gen := &fakeGenerator{result: llm.Result{Text: "ok"}}
			o := newTestOrchestrator(gen)

			_, err := o.Respond(context.Background(), orchestrator.Request{
				Message: "hi",
				Memory:  &store.Memory{Consent: tc.consent, Facts: "Exam next week."},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, strings.Contains(gen.instruction, "Exam next week."))
		})
	}
}

func TestMoodAndReplyModePrecedence(t *testing.T) {
	granted := &store.Memory{Consent: store.ConsentGranted, Mood: "calm", ReplyMode: "detailed"}
	denied := &store.Memory{Consent: store.ConsentDenied, Mood: "calm", ReplyMode: "detailed"}

	cases := []struct {
		name     string
		req      orchestrator.Request
		wantMood string
		wantCap  string
	}{
		{"explicit beats memory", orchestrator.Request{Message: "hi", Mood: "happy", ReplyMode: prompt.ReplyQuick, Memory: granted}, "happy", "at most 3 sentences"},
		{"consented memory fills gaps", orchestrator.Request{Message: "hi", Memory: granted}, "calm", "at most 8 sentences"},
		{"denied memory is ignored", orchestrator.Request{Message: "hi", Memory: denied}, "", "at most 3 sentences"},
		{"fixed default", orchestrator.Request{Message: "hi"}, "", "at most 3 sentences"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{result: llm.Result{Text: "ok"}}
			o := newTestOrchestrator(gen)
			_, err := o.Respond(context.Background(), tc.req)
			require.NoError(t, err)

			assert.Contains(t, gen.instruction, tc.wantCap)
			if tc.wantMood != "" {
				assert.Contains(t, gen.instruction, tc.wantMood)
			} else {
				assert.NotContains(t, gen.instruction, "calm")
			}
		})
	}
}

func TestFallbackFlagPropagates(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: llm.FallbackText(catalog.PersonaJaliana), Fallback: true}}
	o := newTestOrchestrator(gen)

	reply, err := o.Respond(context.Background(), orchestrator.Request{Message: "hi", Persona: catalog.PersonaJaliana})
	require.NoError(t, err)
	assert.True(t, reply.Fallback)
	assert.Equal(t, llm.FallbackText(catalog.PersonaJaliana), reply.Text)
}

func TestSuggestions(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "ok"}}
	o := newTestOrchestrator(gen)

	first, err := o.Respond(context.Background(), orchestrator.Request{Message: "hi", Persona: catalog.PersonaThelivana})
	require.NoError(t, err)

	ongoing, err := o.Respond(context.Background(), orchestrator.Request{
		Message: "hi",
		Persona: catalog.PersonaThelivana,
		History: []conversation.Turn{{Role: conversation.RoleUser, Content: "x"}},
	})
	require.NoError(t, err)

	assert.NotEqual(t, first.Suggestions, ongoing.Suggestions)
	assert.Contains(t, ongoing.Suggestions, "நேரடியா சொல்லு")

	// Deterministic across calls.
	again, err := o.Respond(context.Background(), orchestrator.Request{
		Message: "hi",
		Persona: catalog.PersonaThelivana,
		History: []conversation.Turn{{Role: conversation.RoleUser, Content: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, ongoing.Suggestions, again.Suggestions)
}

func TestVoiceDisabledYieldsNoAudio(t *testing.T) {
	gen := &fakeGenerator{result: llm.Result{Text: "ok"}}
	o := newTestOrchestrator(gen)

	reply, err := o.Respond(context.Background(), orchestrator.Request{Message: "hi", Voice: true})
	require.NoError(t, err)
	assert.Nil(t, reply.Audio)
}
