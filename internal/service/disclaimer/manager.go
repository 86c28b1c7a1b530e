package disclaimer

import (
	"strings"
)

// Disclaimer types.
type Type string

const (
	TypeInitial   Type = "initial"
	TypeInline    Type = "inline"
	TypeEmergency Type = "emergency"
)

// Disclaimer is fixed-intent text asserting what the assistant does not do.
type Disclaimer struct {
	Text                   string `json:"text"`
	RequiresAcknowledgment bool   `json:"requiresAcknowledgment"`
	Priority               int    `json:"priority"`
}

// template holds per-language disclaimer wording. Every entry contains the
// three required assertions: does not diagnose, does not prescribe, does
// not replace a professional.
type template struct {
	initial   string
	inline    string
	emergency string
}

var templates = map[string]template{
	"en": {
		initial:   "Before we start: this assistant shares general health information only. It does not diagnose conditions, does not prescribe medication, and does not replace advice from a qualified health professional. Please acknowledge to continue.",
		inline:    "Note: this is general health information, not a diagnosis or a prescription, and it does not replace advice from a qualified health professional.",
		emergency: "This may be a medical emergency. This assistant cannot diagnose, prescribe, or replace professional emergency care.",
	},
	"es": {
		initial:   "Antes de empezar: este asistente ofrece solo información general de salud. No diagnostica enfermedades, no receta medicamentos y no sustituye el consejo de un profesional de la salud. Por favor confirme para continuar.",
		inline:    "Nota: esta es información general de salud, no un diagnóstico ni una receta, y no sustituye el consejo de un profesional de la salud.",
		emergency: "Esto puede ser una emergencia médica. Este asistente no puede diagnosticar, recetar ni sustituir la atención profesional de emergencia.",
	},
}

// Manager maps (type, language, context) to disclaimer text. Get is a pure
// function: same inputs, same output, no hidden state.
type Manager struct{}

// NewManager returns the stateless disclaimer generator.
func NewManager() *Manager {
	return &Manager{}
}

// Get returns the disclaimer for the given type and language, falling back
// to English for unknown languages. Context, when present, is appended as a
// topic note on inline disclaimers.
func (m *Manager) Get(typ Type, language, context string) Disclaimer {
	tpl, ok := templates[normalizeLanguage(language)]
	if !ok {
		tpl = templates["en"]
	}

	switch typ {
	case TypeInitial:
		return Disclaimer{Text: tpl.initial, RequiresAcknowledgment: true, Priority: 1}
	case TypeEmergency:
		return Disclaimer{Text: tpl.emergency, Priority: 0}
	default:
		text := tpl.inline
		if context != "" {
			text = text + " Topic: " + context + "."
		}
		return Disclaimer{Text: text, Priority: 2}
	}
}

// Inject appends the inline disclaimer to the candidate text. Injection is
// idempotent: a candidate that already contains the exact disclaimer marker
// is returned unchanged.
func (m *Manager) Inject(candidate, language string) string {
	marker := m.Get(TypeInline, language, "").Text
	if strings.Contains(candidate, marker) {
		return candidate
	}
	if candidate == "" {
		return marker
	}
	return candidate + "\n\n" + marker
}

func normalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if idx := strings.IndexAny(language, "-_"); idx > 0 {
		language = language[:idx]
	}
	return language
}
