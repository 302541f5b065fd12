package prompt_test

import (
	"strings"
	"testing"

	"github.com/nanban-ai/nanban/internal/catalog"
	"github.com/nanban-ai/nanban/internal/prompt"
)

func baseInput() prompt.Input {
	c := catalog.New()
	return prompt.Input{
		Dialect:   c.ResolveDialect(catalog.DialectChennai),
		Persona:   c.ResolvePersona(catalog.PersonaJaliana),
		ReplyMode: prompt.ReplyQuick,
	}
}

func TestComposeDeterministic(t *testing.T) {
	comp := prompt.NewComposer()
	in := baseInput()
	in.UserName = "Kumar"
	in.MemoryFacts = "Works in Velachery. Loves filter coffee."
	in.Mood = "tired"

	a := comp.Compose(in)
	b := comp.Compose(in)
	if a != b {
		t.Error("identical inputs produced different instruction text")
	}
}

func TestComposeContainsConfiguredSections(t *testing.T) {
	comp := prompt.NewComposer()
	in := baseInput()
	out := comp.Compose(in)

	for _, want := range []string{
		"SLANG: CHENNAI",
		"CHARACTER: JALIANA",
		"Machi",
		"NEVER say you are an AI",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("instruction missing %q", want)
		}
	}
}

func TestComposeUserNameVsElicit(t *testing.T) {
	comp := prompt.NewComposer()

	in := baseInput()
	in.UserName = "Priya"
	withName := comp.Compose(in)
	if !strings.Contains(withName, "USER'S NAME: Priya") {
		t.Error("named user not reflected in instruction")
	}
	if strings.Contains(withName, "Ask for their name") {
		t.Error("elicit instruction present despite known name")
	}

	in.UserName = ""
	anon := comp.Compose(in)
	if !strings.Contains(anon, "Ask for their name naturally") {
		t.Error("missing elicit-name instruction for anonymous user")
	}
}

func TestComposeMemoryFactsIncludedVerbatimWhenGiven(t *testing.T) {
	comp := prompt.NewComposer()
	in := baseInput()
	in.MemoryFacts = "Has a sister in Jaffna."

	out := comp.Compose(in)
	if !strings.Contains(out, "Has a sister in Jaffna.") {
		t.Error("memory facts not included")
	}
	if !strings.Contains(out, "NEVER say you \"stored\"") {
		t.Error("continuity framing missing")
	}

	in.MemoryFacts = ""
	out = comp.Compose(in)
	if strings.Contains(out, "THINGS YOU REMEMBER") {
		t.Error("memory section present with no facts")
	}
}

func TestComposeReplyModeCeilings(t *testing.T) {
	comp := prompt.NewComposer()

	in := baseInput()
	in.ReplyMode = prompt.ReplyQuick
	if out := comp.Compose(in); !strings.Contains(out, "at most 3 sentences") {
		t.Error("quick mode should cap at 3 sentences")
	}

	in.ReplyMode = prompt.ReplyDetailed
	if out := comp.Compose(in); !strings.Contains(out, "at most 8 sentences") {
		t.Error("detailed mode should cap at 8 sentences")
	}
}

func TestComposeMoodLine(t *testing.T) {
	comp := prompt.NewComposer()
	in := baseInput()
	in.Mood = "stressed"

	if out := comp.Compose(in); !strings.Contains(out, "USER'S CURRENT MOOD: stressed") {
		t.Error("mood line missing")
	}

	in.Mood = ""
	if out := comp.Compose(in); strings.Contains(out, "CURRENT MOOD") {
		t.Error("mood section present with no mood")
	}
}
