// Package generator produces quiz questions, either from a live provider or from fixed templates.
package generator

import (
	"fmt"
	"math/rand"
	"strings"

	"ai-quiz-service/internal/domain"
)

const wrongPerQuestion = domain.OptionsPerQuestion - 1

// TemplateGenerate synthesizes count questions about topic. The structure is deterministic
// (template choice depends only on the index); option order is shuffled with rng.
func TemplateGenerate(rng *rand.Rand, topic string, difficulty domain.Difficulty, count int) ([]domain.Question, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: question count %d", domain.ErrInvalidInput, count)
	}
	prompts, ok := promptTemplates[difficulty]
	if !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidInput, difficulty)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", domain.ErrInvalidInput)
	}

	fill := strings.NewReplacer("{topic}", topic).Replace
	questions := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		correct := correctTemplates[i%len(correctTemplates)]
		texts := make([]string, 0, domain.OptionsPerQuestion)
		texts = append(texts, fill(correct.text))
		for k := 0; k < wrongPerQuestion; k++ {
			texts = append(texts, fill(wrongTemplates[(i*wrongPerQuestion+k)%len(wrongTemplates)]))
		}

		options, correctLabel := shuffleOptions(rng, texts, 0)
		question := domain.Question{
			ID:            fmt.Sprintf("q_%d", i+1),
			Text:          fill(prompts[i%len(prompts)]),
			Options:       options,
			CorrectOption: correctLabel,
			Explanation:   fill(correct.explanation),
		}
		if err := question.Validate(); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, nil
}

// shuffleOptions applies a Fisher-Yates shuffle (rand.Shuffle) to texts and reports the label
// the correct text landed on. Correctness is tracked by position, never by text comparison.
func shuffleOptions(rng *rand.Rand, texts []string, correctIndex int) ([]domain.Option, domain.OptionLabel) {
	order := make([]int, len(texts))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	options := make([]domain.Option, len(texts))
	var correct domain.OptionLabel
	for pos, src := range order {
		label := domain.Labels[pos]
		options[pos] = domain.Option{Label: label, Text: texts[src]}
		if src == correctIndex {
			correct = label
		}
	}
	return options, correct
}
