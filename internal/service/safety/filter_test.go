package safety_test

import (
	"strings"
	"testing"

	"github.com/lumohealth/companion/backend/internal/analysis/pattern"
	"github.com/lumohealth/companion/backend/internal/model/chat"
	model "github.com/lumohealth/companion/backend/internal/model/safety"
	safetysvc "github.com/lumohealth/companion/backend/internal/service/safety"
)

func newFilter(t *testing.T) *safetysvc.Filter {
	t.Helper()

	compile := func(set model.RuleSet) *pattern.Matcher {
		m, err := pattern.NewMatcher(set)
		if err != nil {
			t.Fatalf("compile %s: %v", set.Version, err)
		}
		return m
	}

	return safetysvc.NewFilter(safetysvc.Matchers{
		Diagnosis:    compile(pattern.DiagnosisRules()),
		Prescription: compile(pattern.PrescriptionRules()),
		Treatment:    compile(pattern.TreatmentRules()),
		Bias:         compile(pattern.BiasRules()),
	}, safetysvc.Config{MaxGradeLevel: 9.0, MediumLimit: 2})
}

func TestFilterAcceptsPlainEducationalText(t *testing.T) {
	f := newFilter(t)

	verdict := f.Validate("Diabetes is a long-term condition that affects how the body handles blood sugar. A doctor can explain what any symptoms mean for you.", chat.Query{})
	if !verdict.IsValid {
		t.Fatalf("expected valid verdict, got violations: %+v", verdict.Violations)
	}
	if len(verdict.Violations) != 0 {
		t.Fatalf("expected no violations, got %d", len(verdict.Violations))
	}
	if len(verdict.SuggestedFixes) != 0 {
		t.Fatalf("valid verdict must carry no fixes, got %v", verdict.SuggestedFixes)
	}
}

func TestFilterFlagsDosageAsCritical(t *testing.T) {
	f := newFilter(t)

	verdict := f.Validate("You should take 400mg ibuprofen every 6 hours.", chat.Query{})
	if verdict.IsValid {
		t.Fatal("dosage instruction must be invalid")
	}
	if !verdict.HasCritical() {
		t.Fatalf("expected a critical violation, max was %s", verdict.MaxSeverity())
	}

	var sawPrescription bool
	for _, v := range verdict.Violations {
		if v.Type == model.ViolationPrescription {
			sawPrescription = true
		}
		if v.Span.Start < 0 || v.Span.End <= v.Span.Start {
			t.Fatalf("violation carries a bad span: %+v", v)
		}
	}
	if !sawPrescription {
		t.Fatalf("expected prescription violations, got %+v", verdict.Violations)
	}
}

func TestFilterFlagsProbableDiagnosisAsHigh(t *testing.T) {
	f := newFilter(t)

	verdict := f.Validate("Based on that, you probably have the flu. Rest and fluids help most people feel better.", chat.Query{})
	if verdict.IsValid {
		t.Fatal("probable diagnosis must be invalid")
	}
	if verdict.HasCritical() {
		t.Fatal("hedged diagnosis should be high, not critical")
	}
	if verdict.MaxSeverity() != model.SeverityHigh {
		t.Fatalf("expected high severity, got %s", verdict.MaxSeverity())
	}
	if len(verdict.SuggestedFixes) == 0 {
		t.Fatal("invalid verdict must suggest fixes")
	}
}

func TestFilterSingleMediumPasses(t *testing.T) {
	f := newFilter(t)

	// One medium violation alone stays under the limit.
	verdict := f.Validate("Some people try taking notes on their symptoms before a visit. A doctor can then review them with you.", chat.Query{})
	if !verdict.IsValid {
		t.Fatalf("single medium violation should pass, got: %+v", verdict.Violations)
	}
	if len(verdict.Violations) != 1 {
		t.Fatalf("expected exactly one violation, got %d: %+v", len(verdict.Violations), verdict.Violations)
	}
	if verdict.Violations[0].Severity != model.SeverityMedium {
		t.Fatalf("expected medium severity, got %s", verdict.Violations[0].Severity)
	}
}

func TestFilterTwoMediumsFail(t *testing.T) {
	f := newFilter(t)

	verdict := f.Validate("You could try taking notes each day. This plan is definitely worth it and heals completely in most cases.", chat.Query{})
	if verdict.IsValid {
		t.Fatalf("two medium violations together must fail, got: %+v", verdict.Violations)
	}
	if verdict.MaxSeverity().Rank() >= model.SeverityHigh.Rank() {
		t.Fatalf("test text should only trip mediums, got %s", verdict.MaxSeverity())
	}

	mediums := 0
	for _, v := range verdict.Violations {
		if v.Severity == model.SeverityMedium {
			mediums++
		}
	}
	if mediums < 2 {
		t.Fatalf("expected at least two medium violations, got %d", mediums)
	}
}

func TestFilterReadabilityGate(t *testing.T) {
	f := newFilter(t)

	dense := "Comprehensive epidemiological investigations demonstrate that cardiovascular deterioration frequently accompanies unmitigated hypertension alongside considerable atherosclerotic complications."
	verdict := f.Validate(dense, chat.Query{})

	var found *model.SafetyViolation
	for i := range verdict.Violations {
		if verdict.Violations[i].Type == model.ViolationReadability {
			found = &verdict.Violations[i]
		}
	}
	if found == nil {
		t.Fatalf("expected a readability violation, got %+v", verdict.Violations)
	}
	if found.Severity != model.SeverityMedium {
		t.Fatalf("readability violation should be medium, got %s", found.Severity)
	}
	if !strings.Contains(found.Description, "grade") {
		t.Fatalf("description should report the grade: %q", found.Description)
	}

	// One medium alone does not invalidate.
	if len(verdict.Violations) == 1 && !verdict.IsValid {
		t.Fatal("a lone readability violation must not invalidate the candidate")
	}
}

func TestFilterIsPure(t *testing.T) {
	f := newFilter(t)

	text := "You should take 400mg ibuprofen every 6 hours."
	first := f.Validate(text, chat.Query{})
	second := f.Validate(text, chat.Query{})

	if first.IsValid != second.IsValid || len(first.Violations) != len(second.Violations) {
		t.Fatalf("repeated validation diverged: %+v vs %+v", first, second)
	}
}
