package cli

import (
	"encoding/json"
	"math/rand"
	"strings"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/generator"
	"github.com/spf13/cobra"
)

// NewGenerateCmd prints a template-generated quiz as JSON without touching any store.
func NewGenerateCmd() *cobra.Command {
	var (
		topic      string
		difficulty string
		count      int
		seed       int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a quiz offline from templates and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(topic)
			level, err := domain.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			questions, err := generator.TemplateGenerate(rand.New(rand.NewSource(seed)), topic, level, count)
			if err != nil {
				return err
			}
			quiz := domain.Quiz{
				ID:              "offline",
				Title:           topic + " Quiz",
				Topic:           topic,
				Difficulty:      level,
				DurationMinutes: app.DefaultDurationMinutes,
				Questions:       questions,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(quiz)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "quiz topic")
	cmd.Flags().StringVar(&difficulty, "difficulty", string(domain.DifficultyMedium), "easy, medium or hard")
	cmd.Flags().IntVar(&count, "count", 5, "number of questions")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for option order (0 = time based)")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
