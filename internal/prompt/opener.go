package prompt

import (
	"fmt"

	"github.com/nanban-ai/nanban/internal/catalog"
)

// ExampleOpener derives the example opening line for a (dialect, persona)
// pair. The original product kept a literal table over every combination;
// here the persona picks the greeting shape and the dialect picks the
// address term, so every pair — including unmapped ones — resolves without
// a sparse-table miss. Unmapped personas get the neutral greeting.
//
// When the user's name is known it replaces the dialect address term.
func ExampleOpener(dialect catalog.Dialect, persona catalog.Persona, userName string) string {
	addr := addressTerm(dialect, persona)
	if userName != "" {
		addr = userName
	}

	switch persona {
	case catalog.PersonaJaliana:
		return fmt.Sprintf("வா %s! என்ன விஷயம் இன்னைக்கு? 😄", addr)
	case catalog.PersonaAmaithiyana:
		return fmt.Sprintf("வாங்க %s...", addr)
	case catalog.PersonaThelivana:
		return fmt.Sprintf("சொல்லுங்க %s, என்ன வேணும்?", addr)
	case catalog.PersonaVilakkamana:
		return fmt.Sprintf("வாருங்கள் %s. எப்படி உதவலாம்?", addr)
	default:
		return fmt.Sprintf("வணக்கம் %s!", addr)
	}
}

// addressTerm maps a dialect to its natural address word. VILAKKAMAANA
// always addresses formally regardless of dialect.
func addressTerm(dialect catalog.Dialect, persona catalog.Persona) string {
	if persona == catalog.PersonaVilakkamana {
		return "நண்பரே"
	}
	switch dialect {
	case catalog.DialectChennai:
		return "மச்சி"
	case catalog.DialectKovai:
		return "சாமி"
	case catalog.DialectMadurai:
		return "அண்ணே"
	case catalog.DialectNellai:
		return "லே"
	case catalog.DialectEelam:
		return "அப்பா"
	default: // COMMON and anything unmapped
		return "நண்பா"
	}
}
