package safety

// Severity grades how serious a matched rule or violation is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so policies can compare them.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Urgency grades how fast an emergency needs attention.
type Urgency string

const (
	UrgencySoon      Urgency = "soon"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyImmediate Urgency = "immediate"
)

// Rank orders urgencies: immediate > urgent > soon.
func (u Urgency) Rank() int {
	switch u {
	case UrgencySoon:
		return 1
	case UrgencyUrgent:
		return 2
	case UrgencyImmediate:
		return 3
	default:
		return 0
	}
}

// ViolationType names the safety check a violation came from.
type ViolationType string

const (
	ViolationDiagnosis    ViolationType = "diagnosis"
	ViolationPrescription ViolationType = "prescription"
	ViolationTreatment    ViolationType = "treatment"
	ViolationBias         ViolationType = "bias"
	ViolationReadability  ViolationType = "readability"
)

// Rule is one declarative matching rule: keywords match on word boundaries,
// phrases as substrings, patterns as regular expressions. Severity applies
// to content rules, Urgency and Category to emergency rules.
type Rule struct {
	Name       string   `json:"name"`
	Category   string   `json:"category,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	Phrases    []string `json:"phrases,omitempty"`
	Patterns   []string `json:"patterns,omitempty"`
	Severity   Severity `json:"severity,omitempty"`
	Urgency    Urgency  `json:"urgency,omitempty"`
	Confidence float64  `json:"confidence"`
}

// RuleSet is a versioned, immutable collection of rules. A new version is a
// new RuleSet compiled into a new matcher and swapped in whole, never an
// in-place edit of one already serving matches.
type RuleSet struct {
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// Span locates matched text within the normalized input.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Match is one rule hit produced by the pattern matcher.
type Match struct {
	RuleName   string   `json:"ruleName"`
	Category   string   `json:"category,omitempty"`
	Matched    string   `json:"matched"`
	Span       Span     `json:"span"`
	Severity   Severity `json:"severity,omitempty"`
	Urgency    Urgency  `json:"urgency,omitempty"`
	Confidence float64  `json:"confidence"`
	RuleIndex  int      `json:"-"`
}
