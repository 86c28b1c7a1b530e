package knowledge

import "strings"

// Fact is one curated, sourced statement about a health topic.
type Fact struct {
	Topic     string `json:"topic"`
	Statement string `json:"statement"`
	Source    string `json:"source"`
}

// Store exposes curated topic facts to the pipeline. Content authoring and
// review happen outside this service; the store only serves what it was
// seeded with.
type Store interface {
	Lookup(topic, language string) []Fact
	DetectTopic(text string) string
}

// MemoryStore implements Store over an in-memory seed.
type MemoryStore struct {
	facts  map[string][]Fact
	topics map[string][]string
}

// NewMemoryStore returns a store preloaded with the supplied facts.
func NewMemoryStore(facts []Fact) *MemoryStore {
	byTopic := make(map[string][]Fact)
	for _, f := range facts {
		byTopic[f.Topic] = append(byTopic[f.Topic], f)
	}
	return &MemoryStore{facts: byTopic, topics: topicKeywords()}
}

// Lookup returns the facts for the topic. Facts are curated per language
// upstream; the in-memory seed carries English only and is returned for any
// language rather than leaving the response unsourced.
func (s *MemoryStore) Lookup(topic, _ string) []Fact {
	return append([]Fact(nil), s.facts[topic]...)
}

// DetectTopic maps free text to a known topic, or "" when nothing matches.
// First keyword hit wins, in declaration order.
func (s *MemoryStore) DetectTopic(text string) string {
	lowered := strings.ToLower(text)
	for _, topic := range topicOrder {
		for _, kw := range s.topics[topic] {
			if strings.Contains(lowered, kw) {
				return topic
			}
		}
	}
	return ""
}

var topicOrder = []string{"diabetes", "hypertension", "asthma", "nutrition", "sleep", "exercise"}

func topicKeywords() map[string][]string {
	return map[string][]string{
		"diabetes":     {"diabetes", "blood sugar", "glucose", "insulin"},
		"hypertension": {"hypertension", "blood pressure"},
		"asthma":       {"asthma", "inhaler", "wheezing"},
		"nutrition":    {"nutrition", "diet", "vitamin", "healthy eating"},
		"sleep":        {"sleep", "insomnia"},
		"exercise":     {"exercise", "workout", "physical activity"},
	}
}

// Seed provides the default curated facts.
func Seed() []Fact {
	return []Fact{
		{Topic: "diabetes", Statement: "Diabetes is a chronic condition in which the body struggles to regulate blood glucose levels.", Source: "WHO diabetes fact sheet"},
		{Topic: "diabetes", Statement: "Common general signs include increased thirst, frequent urination and fatigue; only a clinician can confirm the condition.", Source: "CDC diabetes basics"},
		{Topic: "hypertension", Statement: "Hypertension means blood pressure that stays higher than the healthy range over time, often without symptoms.", Source: "WHO hypertension fact sheet"},
		{Topic: "hypertension", Statement: "Lifestyle factors such as salt intake, activity level and stress can influence blood pressure.", Source: "CDC high blood pressure facts"},
		{Topic: "asthma", Statement: "Asthma is a long-term condition in which airways can narrow and produce extra mucus, making breathing harder.", Source: "WHO asthma fact sheet"},
		{Topic: "nutrition", Statement: "A balanced diet with vegetables, fruits, whole grains and limited added sugar supports general health.", Source: "WHO healthy diet fact sheet"},
		{Topic: "sleep", Statement: "Most adults benefit from seven or more hours of sleep per night on a regular schedule.", Source: "CDC sleep guidelines"},
		{Topic: "exercise", Statement: "Regular moderate physical activity supports heart health, mood and weight management for most people.", Source: "WHO physical activity fact sheet"},
	}
}
