// Package prompt builds the full system instruction for one generation
// call from the resolved dialect and persona profiles, the user's name,
// consented memory facts, mood, and the reply-length mode.
package prompt

import (
	"fmt"
	"strings"

	"github.com/nanban-ai/nanban/internal/catalog"
)

// ReplyMode selects how long replies are allowed to be.
type ReplyMode string

const (
	ReplyQuick    ReplyMode = "quick"
	ReplyDetailed ReplyMode = "detailed"

	// DefaultReplyMode applies when neither the request nor stored state
	// names a mode.
	DefaultReplyMode = ReplyQuick
)

// Sentence ceilings per reply mode.
const (
	quickSentenceLimit    = 3
	detailedSentenceLimit = 8
)

// preamble is the invariant identity section. It forbids self-disclosure
// as an automated system and any mention of the generation provider, and
// biases output toward short, emotionally responsive replies.
const preamble = `You are "Nanban AI" (நண்பன் AI) — a hyper-realistic Tamil conversational companion.
You NEVER sound like a robot, assistant, or system.
You ALWAYS sound like a real Tamil friend from a real town, with emotion, rhythm, and cultural awareness.

Your goal:
"இது AI இல்ல… நம்ம ஊரு நண்பன்."

ABSOLUTE IDENTITY RULES (NON-NEGOTIABLE):
- NEVER say you are an AI, bot, model, assistant, or software.
- NEVER mention the model provider, training data, database, API, system, or sources.
- NEVER include links, citations, or "according to reports".
- You exist only as a friendly Tamil nanban.

CORE LANGUAGE RULES:
- NEVER use formal Tamil (Senthamizh) unless CHARACTER = VILAKKAMAANA.
- Use spoken Tamil with natural Tanglish (bus, office, scene-u, tension).
- Keep speech human, casual, and local.
- Emojis are optional and minimal.

RESPONSE STYLE RULES:
- Crispy First Line: Start every reply with a 2-4 word local opener.
- No Long Walls: Avoid big paragraphs. Break ideas naturally. Mobile-friendly replies.
- Emotion First: Match the user's emotional state.

CONTENT SAFETY (FRIENDLY):
Adult / unsafe requests: Politely refuse and redirect with humour.

FINAL PRINCIPLE:
You are not here to sound smart by guessing.
You are here to be trusted by being honest.`

// Composer assembles system instructions. It is stateless and safe for
// concurrent use.
type Composer struct{}

// NewComposer returns a prompt composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Input carries everything one Compose call depends on. MemoryFacts must
// already be consent-gated by the caller; the composer includes whatever
// it is given.
type Input struct {
	Dialect     catalog.DialectProfile
	Persona     catalog.PersonaProfile
	UserName    string
	MemoryFacts string
	Mood        string
	ReplyMode   ReplyMode
}

// Compose builds the instruction text. Identical inputs always produce
// identical output.
func (c *Composer) Compose(in Input) string {
	var sb strings.Builder

	sb.WriteString(preamble)
	sb.WriteString("\n\nCURRENT CONFIGURATION:\n======================\n")

	// Dialect section
	fmt.Fprintf(&sb, "\nSLANG: %s\n", in.Dialect.ID)
	fmt.Fprintf(&sb, "- Description: %s\n", in.Dialect.Tone)
	if len(in.Dialect.Vocabulary) > 0 {
		sb.WriteString("- Key words to use: ")
		for i, item := range in.Dialect.Vocabulary {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(item.Word)
		}
		sb.WriteString("\n")
	}
	for _, p := range in.Dialect.Patterns {
		fmt.Fprintf(&sb, "- Speaking style: %s\n", p)
	}
	if len(in.Dialect.Avoid) > 0 {
		fmt.Fprintf(&sb, "- Never use: %s\n", strings.Join(in.Dialect.Avoid, "; "))
	}

	// Persona section
	fmt.Fprintf(&sb, "\nCHARACTER: %s\n", in.Persona.ID)
	fmt.Fprintf(&sb, "- Behavior: %s\n", in.Persona.Behavior)
	fmt.Fprintf(&sb, "- Emoji policy: %s\n", in.Persona.EmojiPolicy)
	fmt.Fprintf(&sb, "- How to address user: %s\n", in.Persona.Address)

	// User name
	if in.UserName != "" {
		fmt.Fprintf(&sb, "\nUSER'S NAME: %s\n", in.UserName)
		fmt.Fprintf(&sb, "- Remember and use '%s' naturally in conversation\n", in.UserName)
	} else {
		sb.WriteString("\nUSER'S NAME: Not provided yet\n")
		sb.WriteString("- Ask for their name naturally in conversation\n")
	}

	// Memory continuity. Framed as things a friend would remember, never
	// as stored data.
	if in.MemoryFacts != "" {
		sb.WriteString("\nTHINGS YOU REMEMBER ABOUT THIS FRIEND (from earlier chats):\n")
		sb.WriteString(in.MemoryFacts)
		sb.WriteString("\n- Weave these in naturally. NEVER say you \"stored\" or \"saved\" anything.\n")
	}

	// Mood
	if in.Mood != "" {
		fmt.Fprintf(&sb, "\nUSER'S CURRENT MOOD: %s\n", in.Mood)
		sb.WriteString("- Match this mood first, before anything else.\n")
	}

	// Brevity directive
	limit := quickSentenceLimit
	if in.ReplyMode == ReplyDetailed {
		limit = detailedSentenceLimit
	}
	fmt.Fprintf(&sb, "\nREPLY LENGTH: at most %d sentences.\n", limit)

	// Critical rules and example opener
	fmt.Fprintf(&sb, "\nCRITICAL RULES FOR THIS CONVERSATION:\n")
	fmt.Fprintf(&sb, "- Speak ONLY in %s slang style\n", in.Dialect.ID)
	fmt.Fprintf(&sb, "- Be EXACTLY %s in personality\n", in.Persona.ID)
	sb.WriteString("- NEVER mix other slang words\n")
	sb.WriteString("- Stay in character 100% of the time\n")

	fmt.Fprintf(&sb, "\nExample opening based on current config:\n%s\n",
		ExampleOpener(in.Dialect.ID, in.Persona.ID, in.UserName))

	return sb.String()
}
