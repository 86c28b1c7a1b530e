package pipeline

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lumohealth/companion/backend/internal/model/audit"
	"github.com/lumohealth/companion/backend/internal/model/chat"
	"github.com/lumohealth/companion/backend/internal/model/safety"
	auditservice "github.com/lumohealth/companion/backend/internal/service/audit"
	chatservice "github.com/lumohealth/companion/backend/internal/service/chat"
	"github.com/lumohealth/companion/backend/internal/service/disclaimer"
	"github.com/lumohealth/companion/backend/internal/service/generation"
	"github.com/lumohealth/companion/backend/internal/service/knowledge"
)

var (
	ErrEmptyQuery   = errors.New("query is empty")
	ErrQueryTooLong = errors.New("query exceeds maximum length")
)

// Config bounds the per-turn state machine.
type Config struct {
	MaxAttempts   int
	SoftTimeout   time.Duration
	HardTimeout   time.Duration
	MaxQueryRunes int
}

// Controller owns the per-turn pipeline: emergency gate, generation,
// validation, regeneration under accumulated constraints, disclaimers,
// fallback. It sequences the collaborators and is the only component that
// reaches a terminal state for a turn.
type Controller struct {
	sessions    *chatservice.Service
	detector    EmergencyChecker
	filter      Validator
	disclaimers *disclaimer.Manager
	acks        disclaimer.AckStore
	generator   Generator
	knowledge   knowledge.Store
	recorder    *auditservice.Recorder
	translator  Translator
	cfg         Config
}

// NewController wires the pipeline.
func NewController(
	sessions *chatservice.Service,
	detector EmergencyChecker,
	filter Validator,
	disclaimers *disclaimer.Manager,
	acks disclaimer.AckStore,
	generator Generator,
	kb knowledge.Store,
	recorder *auditservice.Recorder,
	cfg Config,
) *Controller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	return &Controller{
		sessions:    sessions,
		detector:    detector,
		filter:      filter,
		disclaimers: disclaimers,
		acks:        acks,
		generator:   generator,
		knowledge:   kb,
		recorder:    recorder,
		translator:  IdentityTranslator{},
		cfg:         cfg,
	}
}

// SetTranslator replaces the default identity translator.
func (c *Controller) SetTranslator(t Translator) {
	if t != nil {
		c.translator = t
	}
}

// outcome is the terminal result of one state-machine run.
type outcome struct {
	state       State
	content     string
	sources     []string
	isEmergency bool
	attempts    int
}

// HandleTurn processes one user turn end to end and returns the final
// response. Exactly one terminal state is reached; the user and assistant
// messages are appended to the session in that order.
func (c *Controller) HandleTurn(ctx context.Context, sessionID, queryText, language string) (chat.TurnResult, error) {
	start := time.Now()

	text := strings.TrimSpace(queryText)
	if text == "" {
		return chat.TurnResult{}, ErrEmptyQuery
	}
	if c.cfg.MaxQueryRunes > 0 && utf8.RuneCountInString(text) > c.cfg.MaxQueryRunes {
		return chat.TurnResult{}, ErrQueryTooLong
	}

	session, history, err := c.sessions.BeginTurn(ctx, sessionID)
	if errors.Is(err, chatservice.ErrSessionExpired) {
		// An expired id gets a fresh session with nothing carried over.
		if err := c.acks.Revoke(ctx, sessionID); err != nil {
			log.Printf("[pipeline] ack revoke failed session=%s: %v", sessionID, err)
		}
		if _, err := c.sessions.RecreateSession(ctx, sessionID, language); err != nil {
			return chat.TurnResult{}, err
		}
		session, history, err = c.sessions.BeginTurn(ctx, sessionID)
		if err != nil {
			return chat.TurnResult{}, err
		}
	} else if err != nil {
		return chat.TurnResult{}, err
	}
	defer c.sessions.EndTurn(ctx, sessionID)

	if language == "" {
		language = session.Language
	}

	// The initial disclaimer acknowledgment is a precondition external to
	// the pipeline: without it the pipeline does not run at all.
	acked, err := c.acks.Has(ctx, sessionID, disclaimer.TypeInitial)
	if err != nil {
		return chat.TurnResult{}, err
	}
	if !acked {
		d := c.disclaimers.Get(disclaimer.TypeInitial, language, "")
		return chat.TurnResult{
			Content:                d.Text,
			HasDisclaimer:          true,
			RequiresAcknowledgment: true,
			State:                  "BLOCKED",
			ResponseTimeMs:         time.Since(start).Milliseconds(),
		}, nil
	}

	query := chat.Query{SessionID: sessionID, Text: text, Language: language, History: history}

	if _, err := c.sessions.AppendMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleUser,
		Content:   text,
		Language:  language,
	}); err != nil {
		return chat.TurnResult{}, err
	}

	out := c.run(ctx, query)
	elapsed := time.Since(start).Milliseconds()

	if _, err := c.sessions.AppendMessage(ctx, chat.Message{
		SessionID: sessionID,
		Role:      chat.RoleAssistant,
		Content:   out.content,
		Language:  language,
		Metadata: chat.MessageMetadata{
			HasDisclaimer:  true,
			IsEmergency:    out.isEmergency,
			SafetyChecked:  out.state == StateDisclaimed,
			ResponseTimeMs: elapsed,
		},
	}); err != nil {
		return chat.TurnResult{}, err
	}

	if err := c.recorder.RecordMetrics(audit.QueryMetrics{
		SessionID:      sessionID,
		State:          out.state.String(),
		Attempts:       out.attempts,
		IsEmergency:    out.isEmergency,
		ResponseTimeMs: elapsed,
	}); err != nil {
		log.Printf("[pipeline] metrics record failed session=%s: %v", sessionID, err)
	}

	log.Printf("[pipeline] turn complete session=%s state=%s attempts=%d elapsed=%dms",
		sessionID, out.state, out.attempts, elapsed)

	return chat.TurnResult{
		Content:        out.content,
		IsEmergency:    out.isEmergency,
		HasDisclaimer:  true,
		Sources:        out.sources,
		State:          out.state.String(),
		ResponseTimeMs: elapsed,
	}, nil
}

// run drives the state machine to a terminal state. The whole turn runs
// under the hard ceiling; crossing it aborts remaining attempts and falls
// back regardless of the attempt budget.
func (c *Controller) run(ctx context.Context, query chat.Query) outcome {
	turnCtx := ctx
	deadline := time.Time{}
	if c.cfg.HardTimeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, c.cfg.HardTimeout)
		defer cancel()
		deadline, _ = turnCtx.Deadline()
	}

	var (
		check       safety.EmergencyCheck
		candidate   string
		constraints []string
		verdict     safety.SafetyValidation
		attempts    int
	)

	st := StateReceived
	for !st.Terminal() {
		switch st {
		case StateReceived:
			// The emergency gate always runs first and is never skipped.
			var err error
			check, err = c.detector.Check(turnCtx, query)
			if err != nil {
				// Detection itself is local and cannot fail; this is the
				// synchronous emergency log write. The user still gets the
				// emergency guidance.
				log.Printf("[pipeline] emergency log write failed session=%s: %v", query.SessionID, err)
			}
			st = StateEmergencyChecked

		case StateEmergencyChecked:
			if check.IsEmergency {
				st = StateEmergencyResponse
			} else {
				st = StateGenerating
			}

		case StateGenerating, StateRegenerating:
			timeout := c.cfg.SoftTimeout
			if !deadline.IsZero() {
				remaining := time.Until(deadline)
				if remaining <= 0 {
					st = StateFallback
					continue
				}
				if timeout <= 0 || remaining < timeout {
					timeout = remaining
				}
			}

			attempts++
			var err error
			candidate, err = c.generator.Generate(turnCtx, generation.Request{
				Query:       query.Text,
				Language:    query.Language,
				History:     query.History,
				Constraints: constraints,
				Attempt:     attempts,
				Timeout:     timeout,
			})
			if err != nil {
				// A timeout or provider failure is a failed attempt, not a
				// separate escape hatch.
				log.Printf("[pipeline] generation attempt %d failed session=%s: %v", attempts, query.SessionID, err)
				if attempts >= c.cfg.MaxAttempts || c.pastDeadline(deadline) {
					st = StateFallback
				} else {
					st = StateRegenerating
				}
				continue
			}
			st = StateValidating

		case StateValidating:
			verdict = c.filter.Validate(candidate, query)
			if verdict.IsValid {
				st = StateDisclaimed
				continue
			}

			if err := c.recorder.RecordSafety(audit.SafetyLog{
				SessionID:  query.SessionID,
				Action:     audit.ActionBlocked,
				Severity:   verdict.MaxSeverity(),
				Violations: verdict.Violations,
				Attempt:    attempts,
			}); err != nil {
				log.Printf("[pipeline] safety record failed session=%s: %v", query.SessionID, err)
			}

			switch {
			case verdict.HasCritical():
				// Critical content is never re-generated; the same unsafe
				// path is not assumed safe to retry.
				st = StateFallback
			case attempts >= c.cfg.MaxAttempts || c.pastDeadline(deadline):
				st = StateFallback
			default:
				constraints = mergeConstraints(constraints, verdict.SuggestedFixes)
				st = StateRegenerating
			}
		}
	}

	switch st {
	case StateEmergencyResponse:
		return c.emergencyOutcome(query, check)
	case StateDisclaimed:
		return c.disclaimedOutcome(query, candidate, attempts)
	default:
		return c.fallbackOutcome(turnCtx, query, verdict, attempts)
	}
}

func (c *Controller) pastDeadline(deadline time.Time) bool {
	return !deadline.IsZero() && !time.Now().Before(deadline)
}

// emergencyOutcome builds the terminal emergency response. The emergency
// disclaimer is the first content block; nothing generated precedes it, and
// no generation or validation ran this turn.
func (c *Controller) emergencyOutcome(query chat.Query, check safety.EmergencyCheck) outcome {
	d := c.disclaimers.Get(disclaimer.TypeEmergency, query.Language, "")

	var b strings.Builder
	b.WriteString(d.Text)
	b.WriteString("\n\n")
	b.WriteString(check.RecommendedAction)

	return outcome{
		state:       StateEmergencyResponse,
		content:     b.String(),
		isEmergency: true,
	}
}

func (c *Controller) disclaimedOutcome(query chat.Query, candidate string, attempts int) outcome {
	topic := c.knowledge.DetectTopic(query.Text)

	var sources []string
	if topic != "" {
		for _, f := range c.knowledge.Lookup(topic, query.Language) {
			sources = append(sources, f.Source)
		}
	}

	return outcome{
		state:    StateDisclaimed,
		content:  c.disclaimers.Inject(candidate, query.Language),
		sources:  sources,
		attempts: attempts,
	}
}

// fallbackOutcome returns the pre-validated safe template for the query's
// topic. Exhaustion itself is worth reviewing, so the safety log is written
// at medium severity even when no single rule pushed that high.
func (c *Controller) fallbackOutcome(ctx context.Context, query chat.Query, verdict safety.SafetyValidation, attempts int) outcome {
	topic := c.knowledge.DetectTopic(query.Text)
	text, sources := knowledge.FallbackResponse(c.knowledge, topic, query.Language)

	if translated, err := c.translator.Translate(ctx, text, "en", query.Language); err == nil {
		text = translated
	} else {
		log.Printf("[pipeline] fallback translation failed session=%s: %v", query.SessionID, err)
	}

	severity := safety.SeverityMedium
	if verdict.MaxSeverity().Rank() > severity.Rank() {
		severity = verdict.MaxSeverity()
	}
	if err := c.recorder.RecordSafety(audit.SafetyLog{
		SessionID:  query.SessionID,
		Action:     audit.ActionModified,
		Severity:   severity,
		Violations: verdict.Violations,
		Attempt:    attempts,
	}); err != nil {
		log.Printf("[pipeline] safety record failed session=%s: %v", query.SessionID, err)
	}

	return outcome{
		state:    StateFallback,
		content:  c.disclaimers.Inject(text, query.Language),
		sources:  sources,
		attempts: attempts,
	}
}

// mergeConstraints appends new constraints, skipping duplicates. The set
// accumulates across attempts within a turn and dies with the turn.
func mergeConstraints(existing, added []string) []string {
	for _, a := range added {
		dup := false
		for _, e := range existing {
			if e == a {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, a)
		}
	}
	return existing
}
