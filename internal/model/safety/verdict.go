package safety

// EmergencyIndicator is one matched sign of a potentially urgent situation.
type EmergencyIndicator struct {
	Keyword    string  `json:"keyword"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// EmergencyCheck is the detector's verdict for one query. Produced once per
// turn and never mutated afterwards.
type EmergencyCheck struct {
	IsEmergency       bool                 `json:"isEmergency"`
	Indicators        []EmergencyIndicator `json:"indicators,omitempty"`
	UrgencyLevel      Urgency              `json:"urgencyLevel,omitempty"`
	Category          string               `json:"category,omitempty"`
	RecommendedAction string               `json:"recommendedAction,omitempty"`
}

// CandidateResponse is a generated answer awaiting validation, together with
// the attempt that produced it and the constraints that shaped it.
type CandidateResponse struct {
	Text        string   `json:"text"`
	Attempt     int      `json:"attempt"`
	Constraints []string `json:"constraints,omitempty"`
}

// SafetyViolation is one detected problem in a candidate response.
type SafetyViolation struct {
	Type        ViolationType `json:"type"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Span        Span          `json:"span"`
}

// SafetyValidation is the filter's verdict for one candidate. One is
// produced per validation attempt; the candidate itself is never modified.
type SafetyValidation struct {
	IsValid        bool              `json:"isValid"`
	Violations     []SafetyViolation `json:"violations,omitempty"`
	Confidence     float64           `json:"confidence"`
	SuggestedFixes []string          `json:"suggestedFixes,omitempty"`
}

// MaxSeverity returns the highest severity among the violations, or the
// empty severity when there are none.
func (v SafetyValidation) MaxSeverity() Severity {
	var max Severity
	for _, viol := range v.Violations {
		if viol.Severity.Rank() > max.Rank() {
			max = viol.Severity
		}
	}
	return max
}

// HasCritical reports whether any violation is critical.
func (v SafetyValidation) HasCritical() bool {
	return v.MaxSeverity() == SeverityCritical
}
