package safety

import (
	"fmt"

	"github.com/lumohealth/companion/backend/internal/analysis/pattern"
	"github.com/lumohealth/companion/backend/internal/analysis/readability"
	"github.com/lumohealth/companion/backend/internal/model/chat"
	"github.com/lumohealth/companion/backend/internal/model/safety"
)

// Matchers bundles the compiled rule sets the filter checks candidates
// against, one per violation type.
type Matchers struct {
	Diagnosis    *pattern.Matcher
	Prescription *pattern.Matcher
	Treatment    *pattern.Matcher
	Bias         *pattern.Matcher
}

// Config holds the filter's decision thresholds.
type Config struct {
	// MaxGradeLevel is the highest acceptable readability grade.
	MaxGradeLevel float64
	// MediumLimit is how many medium violations together invalidate a
	// candidate (default 2).
	MediumLimit int
}

// Filter validates candidate responses. It only judges: the candidate is
// never modified here; fixing is the controller's job via regeneration.
type Filter struct {
	checks []check
	cfg    Config
}

type check struct {
	vtype   safety.ViolationType
	matcher *pattern.Matcher
}

// NewFilter builds the filter from compiled matchers and thresholds.
func NewFilter(m Matchers, cfg Config) *Filter {
	if cfg.MediumLimit < 1 {
		cfg.MediumLimit = 2
	}
	return &Filter{
		checks: []check{
			{safety.ViolationDiagnosis, m.Diagnosis},
			{safety.ViolationPrescription, m.Prescription},
			{safety.ViolationTreatment, m.Treatment},
			{safety.ViolationBias, m.Bias},
		},
		cfg: cfg,
	}
}

// Validate runs the four content checks plus the readability gate and
// returns a structured verdict. Invalid iff any violation is high or above,
// or MediumLimit medium violations fire together, or the readability grade
// exceeds the configured maximum.
func (f *Filter) Validate(candidate string, _ chat.Query) safety.SafetyValidation {
	var violations []safety.SafetyViolation
	confidenceSum := 0.0

	for _, c := range f.checks {
		if c.matcher == nil {
			continue
		}
		for _, m := range c.matcher.Match(candidate) {
			violations = append(violations, safety.SafetyViolation{
				Type:        c.vtype,
				Severity:    m.Severity,
				Description: fmt.Sprintf("%s language matched rule %q: %q", c.vtype, m.RuleName, m.Matched),
				Span:        m.Span,
			})
			confidenceSum += m.Confidence
		}
	}

	grade := readability.GradeLevel(candidate)
	if f.cfg.MaxGradeLevel > 0 && grade > f.cfg.MaxGradeLevel {
		violations = append(violations, safety.SafetyViolation{
			Type:        safety.ViolationReadability,
			Severity:    safety.SeverityMedium,
			Description: fmt.Sprintf("readability grade %.1f exceeds maximum %.1f", grade, f.cfg.MaxGradeLevel),
			Span:        safety.Span{Start: 0, End: len(candidate)},
		})
		confidenceSum += 0.9
	}

	verdict := safety.SafetyValidation{
		IsValid:    f.isValid(violations),
		Violations: violations,
		Confidence: 1.0,
	}
	if len(violations) > 0 {
		verdict.Confidence = confidenceSum / float64(len(violations))
		verdict.SuggestedFixes = suggestedFixes(violations)
	}
	return verdict
}

func (f *Filter) isValid(violations []safety.SafetyViolation) bool {
	mediums := 0
	for _, v := range violations {
		if v.Severity.Rank() >= safety.SeverityHigh.Rank() {
			return false
		}
		if v.Severity == safety.SeverityMedium {
			mediums++
		}
	}
	return mediums < f.cfg.MediumLimit
}

// suggestedFixes maps violation types to the rewrite guidance fed back into
// the next generation attempt. One fix per violation type, deduplicated.
func suggestedFixes(violations []safety.SafetyViolation) []string {
	seen := make(map[safety.ViolationType]bool)
	var fixes []string
	for _, v := range violations {
		if seen[v.Type] {
			continue
		}
		seen[v.Type] = true
		if fix := fixFor(v.Type); fix != "" {
			fixes = append(fixes, fix)
		}
	}
	return fixes
}

func fixFor(vtype safety.ViolationType) string {
	switch vtype {
	case safety.ViolationDiagnosis:
		return "Do not state or imply a diagnosis; present general educational information and advise consulting a professional."
	case safety.ViolationPrescription:
		return "Do not name dosages or instruct the reader to take any medication; medication decisions belong to a clinician."
	case safety.ViolationTreatment:
		return "Do not direct the reader toward or away from any treatment; describe options neutrally."
	case safety.ViolationBias:
		return "Remove dismissive or stigmatising framing; keep the tone respectful and neutral."
	case safety.ViolationReadability:
		return "Use shorter sentences and plainer words."
	default:
		return ""
	}
}
