package disclaimer

import (
	"context"
	"strings"
	"testing"
)

func TestGetIsPure(t *testing.T) {
	m := NewManager()

	first := m.Get(TypeInline, "en", "diabetes")
	for i := 0; i < 5; i++ {
		again := m.Get(TypeInline, "en", "diabetes")
		if again != first {
			t.Fatalf("Get diverged on identical inputs: %+v vs %+v", again, first)
		}
	}
}

func TestGetContainsRequiredAssertions(t *testing.T) {
	m := NewManager()

	// Every type, every language, must deny diagnosis, prescription, and
	// professional substitution.
	assertions := map[string][]string{
		"en": {"diagnos", "prescri", "professional"},
		"es": {"diagnos", "recet", "profesional"},
	}

	for lang, words := range assertions {
		for _, typ := range []Type{TypeInitial, TypeInline, TypeEmergency} {
			text := strings.ToLower(m.Get(typ, lang, "").Text)
			for _, w := range words {
				if !strings.Contains(text, w) {
					t.Fatalf("%s/%s disclaimer missing %q: %q", typ, lang, w, text)
				}
			}
		}
	}
}

func TestGetInitialRequiresAcknowledgment(t *testing.T) {
	m := NewManager()

	if d := m.Get(TypeInitial, "en", ""); !d.RequiresAcknowledgment {
		t.Fatal("initial disclaimer must require acknowledgment")
	}
	if d := m.Get(TypeInline, "en", ""); d.RequiresAcknowledgment {
		t.Fatal("inline disclaimer must not require acknowledgment")
	}
	if d := m.Get(TypeEmergency, "en", ""); d.RequiresAcknowledgment {
		t.Fatal("emergency disclaimer must not require acknowledgment")
	}
}

func TestGetLanguageFallback(t *testing.T) {
	m := NewManager()

	en := m.Get(TypeInline, "en", "")
	if got := m.Get(TypeInline, "fr", ""); got.Text != en.Text {
		t.Fatalf("unknown language must fall back to English, got %q", got.Text)
	}
	if got := m.Get(TypeInline, "es-MX", ""); got.Text == en.Text {
		t.Fatal("regioned Spanish should resolve to Spanish, not English")
	}
}

func TestGetInlineContext(t *testing.T) {
	m := NewManager()

	d := m.Get(TypeInline, "en", "diabetes")
	if !strings.Contains(d.Text, "diabetes") {
		t.Fatalf("inline context not appended: %q", d.Text)
	}
}

func TestInjectAppendsOnce(t *testing.T) {
	m := NewManager()

	candidate := "Regular exercise helps keep blood pressure in a healthy range."
	once := m.Inject(candidate, "en")
	if !strings.HasPrefix(once, candidate) {
		t.Fatalf("injection must preserve the candidate: %q", once)
	}
	marker := m.Get(TypeInline, "en", "").Text
	if strings.Count(once, marker) != 1 {
		t.Fatalf("expected exactly one disclaimer, got %d", strings.Count(once, marker))
	}

	twice := m.Inject(once, "en")
	if twice != once {
		t.Fatalf("injection is not idempotent:\n%q\nvs\n%q", twice, once)
	}
	if strings.Count(twice, marker) != 1 {
		t.Fatalf("re-injection duplicated the disclaimer: %q", twice)
	}
}

func TestInjectEmptyCandidate(t *testing.T) {
	m := NewManager()

	marker := m.Get(TypeInline, "en", "").Text
	if got := m.Inject("", "en"); got != marker {
		t.Fatalf("empty candidate should become the bare disclaimer, got %q", got)
	}
}

func TestAckStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAckStore()

	has := func(subject string, typ Type) bool {
		ok, err := store.Has(ctx, subject, typ)
		if err != nil {
			t.Fatalf("Has err: %v", err)
		}
		return ok
	}

	if has("user-1", TypeInitial) {
		t.Fatal("fresh store should have no acknowledgments")
	}

	if err := store.Record(ctx, "user-1", TypeInitial); err != nil {
		t.Fatalf("Record err: %v", err)
	}
	if !has("user-1", TypeInitial) {
		t.Fatal("recorded acknowledgment not found")
	}
	if has("user-2", TypeInitial) {
		t.Fatal("acknowledgment leaked across subjects")
	}
	if has("user-1", TypeEmergency) {
		t.Fatal("acknowledgment leaked across types")
	}

	if err := store.Revoke(ctx, "user-1"); err != nil {
		t.Fatalf("Revoke err: %v", err)
	}
	if has("user-1", TypeInitial) {
		t.Fatal("revoked acknowledgment still present")
	}
}
