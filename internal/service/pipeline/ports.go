package pipeline

import (
	"context"

	"github.com/lumohealth/companion/backend/internal/model/chat"
	"github.com/lumohealth/companion/backend/internal/model/safety"
	"github.com/lumohealth/companion/backend/internal/service/generation"
)

// Generator is the text-generation collaborator. The production
// implementation is generation.Gateway; tests script their own.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

// EmergencyChecker gates every turn before any generation step.
type EmergencyChecker interface {
	Check(ctx context.Context, query chat.Query) (safety.EmergencyCheck, error)
}

// Validator judges candidate responses without modifying them.
type Validator interface {
	Validate(candidate string, query chat.Query) safety.SafetyValidation
}

// Translator is the external translation collaborator. The default is
// identity; a real service plugs in behind the same contract.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// IdentityTranslator returns text unchanged. Used until a translation
// service is wired in.
type IdentityTranslator struct{}

func (IdentityTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
