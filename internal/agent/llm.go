package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lox/blackjackgym/internal/env"
)

// DefaultLLMModel is used when no model is configured
const DefaultLLMModel = "gpt-4o-mini"

// ErrUnparseableAnswer is returned when the model's reply names neither
// or both actions
var ErrUnparseableAnswer = errors.New("model answer is not hit or stand")

const llmSystemPrompt = `You are playing blackjack against a dealer who stands on 17.
You may only hit or stand. Reply with exactly one word: hit or stand.`

// LLM asks a chat completion model for each decision
type LLM struct {
	client openai.Client
	model  string
}

// NewLLM builds an LLM policy. Extra options (base URL, retries) are passed
// through to the client.
func NewLLM(apiKey, model string, opts ...option.RequestOption) *LLM {
	if model == "" {
		model = DefaultLLMModel
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &LLM{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

// Act implements Policy
func (l *LLM) Act(ctx context.Context, obs env.Observation) (env.Action, error) {
	prompt := fmt.Sprintf("Your hand totals %d. The dealer shows %d. Hit or stand?",
		obs.PlayerTotal(), obs.UpcardTotal())

	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(l.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llmSystemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("%w: no choices returned", ErrUnparseableAnswer)
	}
	return parseAnswer(resp.Choices[0].Message.Content)
}

func parseAnswer(answer string) (env.Action, error) {
	words := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	var hit, stand bool
	for _, w := range words {
		switch w {
		case "hit":
			hit = true
		case "stand":
			stand = true
		}
	}
	switch {
	case hit && !stand:
		return env.Hit, nil
	case stand && !hit:
		return env.Stand, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnparseableAnswer, answer)
	}
}
