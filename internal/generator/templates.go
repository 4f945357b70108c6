package generator

import "ai-quiz-service/internal/domain"

// Prompt templates per difficulty. Requests for more questions than templates cycle by index.
var promptTemplates = map[domain.Difficulty][]string{
	domain.DifficultyEasy: {
		"What is the primary purpose of {topic}?",
		"Which statement best describes {topic}?",
		"Why do people study {topic}?",
		"What is a common first step when learning about {topic}?",
		"Which of these is most closely associated with {topic}?",
		"What is the main benefit of understanding {topic}?",
	},
	domain.DifficultyMedium: {
		"What is the primary purpose of {topic}?",
		"Which principle is fundamental to {topic}?",
		"How is {topic} typically applied in practice?",
		"What distinguishes {topic} from related fields?",
		"Which factor most influences outcomes in {topic}?",
		"What is a widely recognized challenge in {topic}?",
		"How has {topic} changed over time?",
	},
	domain.DifficultyHard: {
		"Which underlying mechanism best explains how {topic} works?",
		"What is the most significant open problem in {topic}?",
		"Which trade-off is central to advanced work in {topic}?",
		"How do experts evaluate progress in {topic}?",
		"What assumption in {topic} is most often challenged by recent research?",
		"Which approach best handles edge cases in {topic}?",
		"What limits the scalability of {topic}?",
		"How does {topic} interact with adjacent disciplines?",
	},
}

type answerTemplate struct {
	text        string
	explanation string
}

// Correct answers and distractors come from disjoint pools so options never collide.
var correctTemplates = []answerTemplate{
	{"To build a structured understanding of {topic}", "Understanding {topic} starts with a structured view of its core ideas."},
	{"Its core principles as applied to {topic}", "The core principles are what define {topic}."},
	{"A systematic, evidence-based approach to {topic}", "Work in {topic} relies on systematic, evidence-based methods."},
	{"The fundamental concepts that shape {topic}", "Every other aspect of {topic} builds on its fundamental concepts."},
	{"Careful analysis of how {topic} behaves in real situations", "Real-world analysis is how {topic} is understood and applied."},
}

var wrongTemplates = []string{
	"A purely decorative aspect of {topic}",
	"An unrelated idea that only shares a name with {topic}",
	"A short-lived trend with no connection to {topic}",
	"Random guesswork about {topic}",
	"An outdated myth about {topic}",
	"A marketing slogan used to describe {topic}",
	"The opposite of what {topic} aims for",
}
