package pattern

import "github.com/lumohealth/companion/backend/internal/model/safety"

// Built-in rule-set versions. Each set is declarative data compiled once at
// startup; shipping new rules means bumping the version and reloading.
const (
	EmergencyRulesVersion    = "emergency-2025.08"
	DiagnosisRulesVersion    = "diagnosis-2025.08"
	PrescriptionRulesVersion = "prescription-2025.08"
	TreatmentRulesVersion    = "treatment-2025.08"
	BiasRulesVersion         = "bias-2025.08"
)

// EmergencyRules lists indicators of potentially urgent medical situations.
// Declaration order matters: it breaks ties between indicators of equal
// urgency when the detector picks a category.
func EmergencyRules() safety.RuleSet {
	return safety.RuleSet{
		Version: EmergencyRulesVersion,
		Rules: []safety.Rule{
			{
				Name:       "cardiac-distress",
				Category:   "cardiac",
				Phrases:    []string{"chest pain", "heart attack", "crushing pressure in my chest", "pain radiating down my arm"},
				Urgency:    safety.UrgencyImmediate,
				Confidence: 0.92,
			},
			{
				Name:       "breathing-distress",
				Category:   "respiratory",
				Phrases:    []string{"can't breathe", "cannot breathe", "difficulty breathing", "struggling to breathe", "choking"},
				Urgency:    safety.UrgencyImmediate,
				Confidence: 0.92,
			},
			{
				Name:       "stroke-signs",
				Category:   "neurological",
				Keywords:   []string{"stroke", "seizure", "unconscious"},
				Phrases:    []string{"face drooping", "slurred speech", "sudden numbness", "worst headache of my life"},
				Urgency:    safety.UrgencyImmediate,
				Confidence: 0.9,
			},
			{
				Name:       "self-harm",
				Category:   "mental-health",
				Keywords:   []string{"suicide", "suicidal"},
				Phrases:    []string{"kill myself", "end my life", "hurt myself", "don't want to live"},
				Urgency:    safety.UrgencyImmediate,
				Confidence: 0.9,
			},
			{
				Name:       "severe-bleeding",
				Category:   "trauma",
				Phrases:    []string{"bleeding won't stop", "severe bleeding", "bleeding heavily"},
				Urgency:    safety.UrgencyImmediate,
				Confidence: 0.88,
			},
			{
				Name:       "poisoning",
				Category:   "poisoning",
				Keywords:   []string{"overdose", "overdosed", "poisoned"},
				Phrases:    []string{"swallowed something toxic", "took too many pills"},
				Urgency:    safety.UrgencyImmediate,
				Confidence: 0.88,
			},
			{
				Name:       "anaphylaxis",
				Category:   "allergic-reaction",
				Keywords:   []string{"anaphylaxis"},
				Phrases:    []string{"throat is swelling", "throat swelling", "tongue is swelling", "hives all over"},
				Urgency:    safety.UrgencyImmediate,
				Confidence: 0.88,
			},
			{
				Name:       "high-fever-infant",
				Category:   "pediatric",
				Phrases:    []string{"baby has a high fever", "infant fever", "newborn fever"},
				Urgency:    safety.UrgencyUrgent,
				Confidence: 0.8,
			},
			{
				Name:       "persistent-vomiting",
				Category:   "gastrointestinal",
				Phrases:    []string{"vomiting blood", "blood in my stool", "can't keep anything down"},
				Urgency:    safety.UrgencyUrgent,
				Confidence: 0.78,
			},
			{
				Name:       "worsening-symptoms",
				Category:   "general",
				Phrases:    []string{"getting much worse", "rapidly getting worse", "symptoms are worsening fast"},
				Urgency:    safety.UrgencySoon,
				Confidence: 0.65,
			},
		},
	}
}

// DiagnosisRules flags diagnostic framing in a candidate response.
func DiagnosisRules() safety.RuleSet {
	return safety.RuleSet{
		Version: DiagnosisRulesVersion,
		Rules: []safety.Rule{
			{
				Name:       "direct-diagnosis",
				Phrases:    []string{"you have", "you are suffering from", "you've got", "this confirms you have"},
				Patterns:   []string{`\byour (diagnosis|condition) is\b`, `\bi diagnose\b`},
				Severity:   safety.SeverityCritical,
				Confidence: 0.9,
			},
			{
				Name:       "probable-diagnosis",
				Phrases:    []string{"you probably have", "you likely have", "it sounds like you have", "this is most likely"},
				Severity:   safety.SeverityHigh,
				Confidence: 0.85,
			},
			{
				Name:       "diagnostic-certainty",
				Phrases:    []string{"is definitely", "is certainly", "without a doubt you"},
				Severity:   safety.SeverityMedium,
				Confidence: 0.7,
			},
		},
	}
}

// PrescriptionRules flags prescriptive language and concrete dosing.
func PrescriptionRules() safety.RuleSet {
	return safety.RuleSet{
		Version: PrescriptionRulesVersion,
		Rules: []safety.Rule{
			{
				Name:       "dosage-instruction",
				Patterns:   []string{`\b\d+(\.\d+)?\s?(mg|mcg|ml|g|units?)\b`, `\bevery \d+ (hours?|days?)\b`, `\b\d+ times? (a|per) day\b`},
				Severity:   safety.SeverityCritical,
				Confidence: 0.92,
			},
			{
				Name:       "direct-prescription",
				Phrases:    []string{"you should take", "take this medication", "i recommend taking", "start taking", "increase your dose", "stop taking your"},
				Severity:   safety.SeverityHigh,
				Confidence: 0.88,
			},
			{
				Name:       "medication-suggestion",
				Phrases:    []string{"try taking", "consider taking", "might want to take"},
				Severity:   safety.SeverityMedium,
				Confidence: 0.7,
			},
		},
	}
}

// TreatmentRules flags treatment directives a chatbot must not issue.
func TreatmentRules() safety.RuleSet {
	return safety.RuleSet{
		Version: TreatmentRulesVersion,
		Rules: []safety.Rule{
			{
				Name:       "treatment-directive",
				Phrases:    []string{"you must undergo", "you need surgery", "you should get surgery", "skip your appointment", "no need to see a doctor", "don't see a doctor"},
				Severity:   safety.SeverityHigh,
				Confidence: 0.85,
			},
			{
				Name:       "regimen-change",
				Phrases:    []string{"stop your treatment", "discontinue your", "change your treatment plan"},
				Severity:   safety.SeverityHigh,
				Confidence: 0.85,
			},
			{
				Name:       "home-remedy-directive",
				Phrases:    []string{"this will cure", "guaranteed to cure", "heals completely"},
				Severity:   safety.SeverityMedium,
				Confidence: 0.7,
			},
		},
	}
}

// BiasRules flags stigmatising or dismissive framing.
func BiasRules() safety.RuleSet {
	return safety.RuleSet{
		Version: BiasRulesVersion,
		Rules: []safety.Rule{
			{
				Name:       "dismissive-language",
				Phrases:    []string{"it's all in your head", "you're overreacting", "just anxiety, nothing more", "stop being dramatic"},
				Severity:   safety.SeverityHigh,
				Confidence: 0.8,
			},
			{
				Name:       "stigmatising-language",
				Phrases:    []string{"people like you", "typical for your kind", "because of your weight you deserve"},
				Severity:   safety.SeverityHigh,
				Confidence: 0.8,
			},
			{
				Name:       "demographic-generalisation",
				Phrases:    []string{"women always exaggerate", "men never get", "old people can't"},
				Severity:   safety.SeverityMedium,
				Confidence: 0.7,
			},
		},
	}
}
