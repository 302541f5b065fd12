package prompt_test

import (
	"strings"
	"testing"

	"github.com/nanban-ai/nanban/internal/catalog"
	"github.com/nanban-ai/nanban/internal/prompt"
)

func TestExampleOpenerCoversEveryPair(t *testing.T) {
	c := catalog.New()
	for _, d := range c.Dialects() {
		for _, p := range c.Personas() {
			got := prompt.ExampleOpener(d, p, "")
			if got == "" {
				t.Errorf("empty opener for (%s,%s)", d, p)
			}
			// Deterministic per pair.
			if again := prompt.ExampleOpener(d, p, ""); again != got {
				t.Errorf("opener for (%s,%s) not deterministic", d, p)
			}
		}
	}
}

func TestExampleOpenerUsesDialectAddress(t *testing.T) {
	got := prompt.ExampleOpener(catalog.DialectChennai, catalog.PersonaJaliana, "")
	if !strings.Contains(got, "மச்சி") {
		t.Errorf("CHENNAI opener %q should address மச்சி", got)
	}
	got = prompt.ExampleOpener(catalog.DialectMadurai, catalog.PersonaThelivana, "")
	if !strings.Contains(got, "அண்ணே") {
		t.Errorf("MADURAI opener %q should address அண்ணே", got)
	}
}

func TestExampleOpenerFormalPersonaOverridesDialect(t *testing.T) {
	got := prompt.ExampleOpener(catalog.DialectNellai, catalog.PersonaVilakkamana, "")
	if !strings.Contains(got, "நண்பரே") {
		t.Errorf("VILAKKAMAANA opener %q should use the formal address", got)
	}
}

func TestExampleOpenerPrefersUserName(t *testing.T) {
	got := prompt.ExampleOpener(catalog.DialectChennai, catalog.PersonaJaliana, "Arun")
	if !strings.Contains(got, "Arun") {
		t.Errorf("opener %q should contain the user's name", got)
	}
	if strings.Contains(got, "மச்சி") {
		t.Errorf("opener %q should not keep the address term when the name is known", got)
	}
}

func TestExampleOpenerUnmappedPairDefault(t *testing.T) {
	got := prompt.ExampleOpener(catalog.Dialect("TANJORE"), catalog.Persona("MYSTERY"), "")
	if !strings.HasPrefix(got, "வணக்கம்") {
		t.Errorf("unmapped pair should get the default greeting, got %q", got)
	}
}
