package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/lumohealth/companion/backend/internal/config"
	"github.com/lumohealth/companion/backend/internal/model/chat"
)

// ErrGenerationFailed wraps provider errors and timeouts once the retry
// budget is spent. The controller treats it like any failed attempt.
var ErrGenerationFailed = errors.New("generation failed")

// Request carries everything one generation attempt needs.
type Request struct {
	Query       string
	Language    string
	History     []chat.Message
	Constraints []string
	Attempt     int
	Timeout     time.Duration
}

// Gateway adapts the external text-generation capability behind an eino
// chain: system template, history placeholder, user query. Constraints
// accumulated across attempts render into the system prompt.
type Gateway struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	retries int
	backoff time.Duration
}

// NewGateway builds the gateway from provider configuration.
func NewGateway(ctx context.Context, cfg config.AIConfig) (*Gateway, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &Gateway{
		chain:   runnable,
		retries: 3,
		backoff: 200 * time.Millisecond,
	}, nil
}

// Generate produces one candidate response. Provider errors and timeouts
// are retried with bounded exponential backoff inside the attempt's
// deadline; once retries are spent the failure surfaces as
// ErrGenerationFailed, never as a raw provider error to the user.
func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	input := map[string]any{
		"system":  BuildSystemPrompt(req.Language, req.Constraints),
		"history": buildHistoryMessages(req.History),
		"query":   req.Query,
	}

	var lastErr error
	for try := 0; try < g.retries; try++ {
		response, err := g.chain.Invoke(ctx, input)
		if err == nil {
			log.Printf("[generation] attempt=%d try=%d length=%d", req.Attempt, try+1, len(response.Content))
			return response.Content, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
		case <-time.After(g.backoff << try):
		}
		if ctx.Err() != nil {
			break
		}
	}

	log.Printf("[generation] attempt=%d exhausted retries: %v", req.Attempt, lastErr)
	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}

func buildHistoryMessages(messages []chat.Message) []*schema.Message {
	const historyLimit = 10

	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}
