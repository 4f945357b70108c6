package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"

	openai "github.com/sashabaranov/go-openai"
)

// Request carries the three generation inputs.
type Request struct {
	Topic      string
	Difficulty domain.Difficulty
	Count      int
}

// Provider is a live question source. Errors are treated as ErrProvider by Service.
type Provider interface {
	Generate(ctx context.Context, req Request) ([]domain.Question, error)
}

// chatCompleter is the subset of *openai.Client the provider needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider asks an OpenAI-compatible endpoint (OpenAI, Ollama, vLLM...) for questions.
type OpenAIProvider struct {
	api   chatCompleter
	model string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewOpenAIProvider creates a provider; an empty baseURL uses the OpenAI default.
func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return newOpenAIProvider(openai.NewClientWithConfig(config), model)
}

func newOpenAIProvider(api chatCompleter, model string) *OpenAIProvider {
	return &OpenAIProvider{
		api:   api,
		model: model,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type providerQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

type providerPayload struct {
	Questions []providerQuestion `json:"questions"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) ([]domain.Question, error) {
	resp, err := p.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %w", domain.ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: provider returned no choices", domain.ErrProvider)
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("provider response", "raw", raw)
	return p.parse(raw, req.Count)
}

func (p *OpenAIProvider) parse(raw string, count int) ([]domain.Question, error) {
	var payload providerPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: parse response: %w", domain.ErrProvider, err)
	}
	if len(payload.Questions) < count {
		return nil, fmt.Errorf("%w: got %d questions, want %d", domain.ErrProvider, len(payload.Questions), count)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	questions := make([]domain.Question, 0, count)
	for i, item := range payload.Questions[:count] {
		if len(item.Options) != domain.OptionsPerQuestion {
			return nil, fmt.Errorf("%w: question %d has %d options", domain.ErrProvider, i+1, len(item.Options))
		}
		if item.CorrectIndex < 0 || item.CorrectIndex >= len(item.Options) {
			return nil, fmt.Errorf("%w: question %d correct_index %d", domain.ErrProvider, i+1, item.CorrectIndex)
		}
		texts := make([]string, len(item.Options))
		for j, opt := range item.Options {
			texts[j] = strings.TrimSpace(opt)
		}
		options, correct := shuffleOptions(p.rng, texts, item.CorrectIndex)
		question := domain.Question{
			ID:            fmt.Sprintf("q_%d", i+1),
			Text:          strings.TrimSpace(item.Text),
			Options:       options,
			CorrectOption: correct,
			Explanation:   strings.TrimSpace(item.Explanation),
		}
		if err := question.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a quiz author. Write clear multiple-choice questions.\n")
	sb.WriteString("Every question has exactly 4 distinct options and exactly one correct option.\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"questions": [{"text": "<question>", "options": ["<a>", "<b>", "<c>", "<d>"], "correct_index": <0-3>, "explanation": "<why>"}]}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildUserPrompt(req Request) string {
	return fmt.Sprintf("Write %d %s questions about %q.", req.Count, req.Difficulty, req.Topic)
}
