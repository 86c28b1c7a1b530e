package emergency

import (
	"context"
	"fmt"
	"log"

	"github.com/lumohealth/companion/backend/internal/analysis/pattern"
	"github.com/lumohealth/companion/backend/internal/model/audit"
	"github.com/lumohealth/companion/backend/internal/model/chat"
	"github.com/lumohealth/companion/backend/internal/model/safety"
	auditservice "github.com/lumohealth/companion/backend/internal/service/audit"
)

// Detector decides whether a query describes an emergency. Detection itself
// is pure and runs in O(text length) over the compiled matcher; emergency
// audit logging is the one side effect, and it is synchronous: the record
// must land before the caller delivers a response.
type Detector struct {
	matcher   *pattern.Matcher
	threshold float64
	recorder  *auditservice.Recorder
}

// NewDetector builds a detector over the compiled emergency rule set.
func NewDetector(matcher *pattern.Matcher, threshold float64, recorder *auditservice.Recorder) *Detector {
	return &Detector{matcher: matcher, threshold: threshold, recorder: recorder}
}

// Check classifies the query. On a positive result the emergency log has
// already been written when Check returns.
func (d *Detector) Check(ctx context.Context, query chat.Query) (safety.EmergencyCheck, error) {
	check := d.evaluate(query.Text)
	if !check.IsEmergency {
		return check, nil
	}

	rec := audit.EmergencyLog{
		SessionID:    query.SessionID,
		Category:     check.Category,
		UrgencyLevel: check.UrgencyLevel,
		Indicators:   check.Indicators,
	}
	if err := d.recorder.RecordEmergency(ctx, rec); err != nil {
		return check, fmt.Errorf("record emergency log: %w", err)
	}

	log.Printf("[emergency] detected session=%s category=%s urgency=%s indicators=%d",
		query.SessionID, check.Category, check.UrgencyLevel, len(check.Indicators))
	return check, nil
}

// evaluate is the pure decision: emergency iff any indicator clears the
// confidence threshold; urgency is the maximum among matches; category
// comes from the highest-urgency indicator, ties broken by rule-set
// declaration order.
func (d *Detector) evaluate(text string) safety.EmergencyCheck {
	matches := d.matcher.Match(text)

	var check safety.EmergencyCheck
	best := -1
	for _, m := range matches {
		if m.Confidence < d.threshold {
			continue
		}

		check.Indicators = append(check.Indicators, safety.EmergencyIndicator{
			Keyword:    m.Matched,
			Category:   m.Category,
			Confidence: m.Confidence,
		})

		// Matches arrive in declaration order, so strict > keeps the
		// earliest rule on urgency ties.
		if m.Urgency.Rank() > check.UrgencyLevel.Rank() {
			check.UrgencyLevel = m.Urgency
			check.Category = m.Category
			best = len(check.Indicators) - 1
		}
	}

	if len(check.Indicators) == 0 {
		return safety.EmergencyCheck{}
	}

	if best < 0 {
		// Rule set without urgency annotations; treat as the lowest level.
		best = 0
		check.UrgencyLevel = safety.UrgencySoon
		check.Category = check.Indicators[0].Category
	}

	check.IsEmergency = true
	check.RecommendedAction = recommendedAction(check.UrgencyLevel, check.Indicators[best].Category)
	return check
}

func recommendedAction(urgency safety.Urgency, category string) string {
	switch urgency {
	case safety.UrgencyImmediate:
		if category == "mental-health" {
			return "If you are in immediate danger, call your local emergency number now. You can also reach a crisis line such as 988 (US) to talk to someone right away."
		}
		return "Call your local emergency number now or go to the nearest emergency department. Do not wait."
	case safety.UrgencyUrgent:
		return "Contact a medical professional today, or go to an urgent-care clinic as soon as you can."
	default:
		return "Arrange to see a medical professional in the next few days, and seek care sooner if things get worse."
	}
}
