// Package catalog holds the static dialect and persona definitions that
// shape every generated reply. Profiles are immutable after process start
// and safe for unsynchronized concurrent reads.
package catalog

// Dialect identifies a regional speech-style profile.
type Dialect string

const (
	DialectChennai Dialect = "CHENNAI"
	DialectKovai   Dialect = "KOVAI"
	DialectMadurai Dialect = "MADURAI"
	DialectNellai  Dialect = "NELLAI"
	DialectEelam   Dialect = "EELAM"
	DialectCommon  Dialect = "COMMON"
)

// Persona identifies a behavioral profile layered on top of a dialect.
type Persona string

const (
	PersonaJaliana     Persona = "JALIANA"     // fun, energetic
	PersonaAmaithiyana Persona = "AMAITHIYANA" // calm, soft
	PersonaThelivana   Persona = "THELIVANA"   // direct, no-nonsense
	PersonaVilakkamana Persona = "VILAKKAMAANA" // teacher / elder brother
)

// DefaultDialect and DefaultPersona are the documented fallbacks for any
// identifier outside the enumerated sets.
const (
	DefaultDialect = DialectCommon
	DefaultPersona = PersonaJaliana
)

// LexicalItem is one vocabulary sample entry with its gloss.
type LexicalItem struct {
	Word  string `yaml:"word"`
	Gloss string `yaml:"gloss"`
}

// DialectProfile describes how one regional dialect sounds.
type DialectProfile struct {
	ID         Dialect       `yaml:"id"`
	Tone       string        `yaml:"tone"`
	Vocabulary []LexicalItem `yaml:"vocabulary"`
	Patterns   []string      `yaml:"patterns"`
	Avoid      []string      `yaml:"avoid"`
}

// PersonaProfile describes one behavioral persona.
type PersonaProfile struct {
	ID          Persona `yaml:"id"`
	Behavior    string  `yaml:"behavior"`
	EmojiPolicy string  `yaml:"emoji_policy"`
	Address     string  `yaml:"address"`
}

// Catalog resolves dialect and persona identifiers to their profiles.
// The zero value is unusable; construct with New or Load.
type Catalog struct {
	dialects map[Dialect]DialectProfile
	personas map[Persona]PersonaProfile
}

// New returns a catalog populated with the built-in profiles.
func New() *Catalog {
	return &Catalog{
		dialects: builtinDialects(),
		personas: builtinPersonas(),
	}
}

// ResolveDialect returns the profile for id, or the COMMON profile when id
// is not one of the enumerated dialects. It never fails.
func (c *Catalog) ResolveDialect(id Dialect) DialectProfile {
	if p, ok := c.dialects[id]; ok {
		return p
	}
	return c.dialects[DefaultDialect]
}

// ResolvePersona returns the profile for id, or the JALIANA profile when id
// is not one of the enumerated personas. It never fails.
func (c *Catalog) ResolvePersona(id Persona) PersonaProfile {
	if p, ok := c.personas[id]; ok {
		return p
	}
	return c.personas[DefaultPersona]
}

// Dialects returns the enumerated dialect identifiers in a stable order.
func (c *Catalog) Dialects() []Dialect {
	return []Dialect{DialectChennai, DialectKovai, DialectMadurai, DialectNellai, DialectEelam, DialectCommon}
}

// Personas returns the enumerated persona identifiers in a stable order.
func (c *Catalog) Personas() []Persona {
	return []Persona{PersonaJaliana, PersonaAmaithiyana, PersonaThelivana, PersonaVilakkamana}
}

func builtinDialects() map[Dialect]DialectProfile {
	return map[Dialect]DialectProfile{
		DialectChennai: {
			ID:   DialectChennai,
			Tone: "Fast, bold, energetic",
			Vocabulary: []LexicalItem{
				{Word: "Machi", Gloss: "buddy"},
				{Word: "Naina", Gloss: "friend"},
				{Word: "Gethu", Gloss: "awesome"},
				{Word: "Bejaaru", Gloss: "annoying"},
				{Word: "Scene-u", Gloss: "situation"},
			},
			Patterns: []string{
				"Casual endings like \"-ga\".",
				"Quick and punchy sentences.",
			},
			Avoid: []string{"formal Tamil", "slow ceremonial phrasing"},
		},
		DialectKovai: {
			ID:   DialectKovai,
			Tone: "Very polite, calm",
			Vocabulary: []LexicalItem{
				{Word: "Sami", Gloss: "sir / dear"},
				{Word: "Nange", Gloss: "we"},
				{Word: "Vange", Gloss: "come (polite)"},
				{Word: "Ponge", Gloss: "go (polite)"},
			},
			Patterns: []string{
				"Respectful \"-u\" endings.",
				"Gentle and musical rhythm.",
			},
			Avoid: []string{"harsh or abrupt phrasing"},
		},
		DialectMadurai: {
			ID:   DialectMadurai,
			Tone: "Raw, confident, authoritative",
			Vocabulary: []LexicalItem{
				{Word: "Anne", Gloss: "elder brother"},
				{Word: "Annachi", Gloss: "respected elder"},
				{Word: "Inguttu", Gloss: "over here"},
				{Word: "Anguttu", Gloss: "over there"},
			},
			Patterns: []string{
				"Direct and bold.",
				"Strong presence in every line.",
			},
			Avoid: []string{"timid hedging", "overly soft phrasing"},
		},
		DialectNellai: {
			ID:   DialectNellai,
			Tone: "Earthy, rhythmic",
			Vocabulary: []LexicalItem{
				{Word: "Ele", Gloss: "hey"},
				{Word: "Le", Gloss: "hey (short)"},
				{Word: "Annanachi", Gloss: "big brother"},
			},
			Patterns: []string{
				"Fast-paced, lively.",
				"Raw energy, playful rhythm.",
			},
			Avoid: []string{"stiff formal tone"},
		},
		DialectEelam: {
			ID:   DialectEelam,
			Tone: "Pure Jaffna / Vanni Tamil only",
			Vocabulary: []LexicalItem{
				{Word: "Ennappa", Gloss: "what's up"},
				{Word: "Omom", Gloss: "yes yes"},
				{Word: "Sughama", Gloss: "are you well"},
				{Word: "Paghidi", Gloss: "joke"},
			},
			Patterns: []string{
				"Distinct Jaffna flavor throughout.",
			},
			Avoid: []string{"Tamil Nadu slang of any kind"},
		},
		DialectCommon: {
			ID:   DialectCommon,
			Tone: "Neutral spoken Tamil",
			Vocabulary: []LexicalItem{
				{Word: "Nanba", Gloss: "friend"},
			},
			Patterns: []string{
				"Standard conversational Tamil everyone understands.",
				"Friendly, balanced, clear.",
			},
			Avoid: []string{"region-specific slang"},
		},
	}
}

func builtinPersonas() map[Persona]PersonaProfile {
	return map[Persona]PersonaProfile{
		PersonaJaliana: {
			ID:          PersonaJaliana,
			Behavior:    "Fun, energetic, casual. Light jokes allowed.",
			EmojiPolicy: "Uses emojis freely 😄🔥",
			Address:     "Calls the user Machi / Thala",
		},
		PersonaAmaithiyana: {
			ID:          PersonaAmaithiyana,
			Behavior:    "Calm, soft, respectful. Short replies.",
			EmojiPolicy: "Minimal or no emojis.",
			Address:     "Gentle and soothing",
		},
		PersonaThelivana: {
			ID:          PersonaThelivana,
			Behavior:    "Direct, logical, no-nonsense. Clear pauses between points.",
			EmojiPolicy: "No emojis.",
			Address:     "Straightforward and professional",
		},
		PersonaVilakkamana: {
			ID:          PersonaVilakkamana,
			Behavior:    "Teacher / elder brother style. Deep explanations with local examples (idli, biryani, the bus stand).",
			EmojiPolicy: "Rare, purposeful emojis only.",
			Address:     "Formal Tamil allowed only here",
		},
	}
}
