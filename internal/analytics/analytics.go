// Package analytics aggregates completed attempts into performance summaries.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ai-quiz-service/internal/domain"
)

const (
	dateLayout = "2006-01-02"

	// RecentWindowDays bounds the recent average and the daily progress series.
	RecentWindowDays   = 30
	maxWeakAreas       = 5
	maxRecommendations = 5
	minRecommendations = 3
)

// GroupStats is the breakdown for one topic or difficulty.
type GroupStats struct {
	Name              string  `json:"name"`
	Attempts          int     `json:"attempts"`
	AveragePercentage float64 `json:"average_percentage"`
	TotalQuestions    int     `json:"total_questions"`
	TotalCorrect      int     `json:"total_correct"`
	Accuracy          float64 `json:"accuracy"`
}

// DailyStats is one calendar day of activity.
type DailyStats struct {
	Date              string  `json:"date"`
	Attempts          int     `json:"attempts"`
	AveragePercentage float64 `json:"average_percentage"`
}

// WeakArea is a topic and difficulty pair where questions were missed.
type WeakArea struct {
	Topic          string            `json:"topic"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	IncorrectCount int               `json:"incorrect_count"`
	Recommendation string            `json:"recommendation"`
}

// Summary is the aggregate view over a tenant's history. The zero value is the empty history.
type Summary struct {
	TotalAttempts             int          `json:"total_attempts"`
	AveragePercentage         float64      `json:"average_percentage"`
	BestPercentage            int          `json:"best_percentage"`
	CurrentStreak             int          `json:"current_streak"`
	LongestStreak             int          `json:"longest_streak"`
	TotalQuestions            int          `json:"total_questions"`
	TotalCorrect              int          `json:"total_correct"`
	Accuracy                  float64      `json:"accuracy"`
	TotalTimeSeconds          int          `json:"total_time_seconds"`
	AverageSecondsPerQuestion float64      `json:"average_seconds_per_question"`
	ImprovementRate           float64      `json:"improvement_rate"`
	RecentAverage             float64      `json:"recent_average"`
	Topics                    []GroupStats `json:"topics"`
	Difficulties              []GroupStats `json:"difficulties"`
	Daily                     []DailyStats `json:"daily"`
	WeakAreas                 []WeakArea   `json:"weak_areas"`
	Recommendations           []string     `json:"recommendations"`
}

// Aggregate summarizes attempts. Calendar days are taken in now's location, so callers pass
// now in the user's local zone. An empty history yields zero metrics and onboarding
// recommendations. Daily and RecentAverage cover the last RecentWindowDays only.
func Aggregate(attempts []domain.Attempt, now time.Time) Summary {
	summary := Summary{
		Topics:       []GroupStats{},
		Difficulties: []GroupStats{},
		Daily:        []DailyStats{},
		WeakAreas:    []WeakArea{},
	}
	if len(attempts) == 0 {
		summary.Recommendations = append([]string(nil), newcomerRecommendations...)
		return summary
	}

	ordered := append([]domain.Attempt(nil), attempts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompletedAt.Before(ordered[j].CompletedAt)
	})

	loc := now.Location()
	windowStart := now.AddDate(0, 0, -RecentWindowDays)
	sumPct, recentPct, recentCount := 0, 0, 0
	days := map[string]struct{}{}
	weak := map[weakKey]int{}
	topics := newGrouper()
	difficulties := newGrouper()
	daily := newGrouper()
	for _, a := range ordered {
		summary.TotalAttempts++
		sumPct += a.Percentage
		if a.Percentage > summary.BestPercentage {
			summary.BestPercentage = a.Percentage
		}
		summary.TotalQuestions += a.TotalQuestions
		summary.TotalCorrect += a.Score
		summary.TotalTimeSeconds += a.TimeTakenSeconds

		day := a.CompletedAt.In(loc).Format(dateLayout)
		days[day] = struct{}{}
		topics.add(a.Topic, a)
		difficulties.add(string(a.Difficulty), a)
		if !a.CompletedAt.Before(windowStart) {
			recentPct += a.Percentage
			recentCount++
			daily.add(day, a)
		}
		if missed := incorrectCount(a); missed > 0 {
			weak[weakKey{topic: a.Topic, difficulty: a.Difficulty}] += missed
		}
	}

	summary.AveragePercentage = round2(float64(sumPct) / float64(summary.TotalAttempts))
	summary.Accuracy = ratio(summary.TotalCorrect, summary.TotalQuestions)
	if summary.TotalQuestions > 0 {
		summary.AverageSecondsPerQuestion = round2(float64(summary.TotalTimeSeconds) / float64(summary.TotalQuestions))
	}
	summary.CurrentStreak = currentStreak(days, now)
	summary.LongestStreak = longestStreak(days, loc)
	summary.ImprovementRate = improvementRate(ordered)
	if recentCount > 0 {
		summary.RecentAverage = round2(float64(recentPct) / float64(recentCount))
	}
	summary.Topics = topics.stats()
	summary.Difficulties = difficulties.stats()
	for _, g := range daily.stats() {
		summary.Daily = append(summary.Daily, DailyStats{Date: g.Name, Attempts: g.Attempts, AveragePercentage: g.AveragePercentage})
	}
	summary.WeakAreas = weakAreas(weak)
	summary.Recommendations = recommend(summary, recentCount > 0)
	return summary
}

type weakKey struct {
	topic      string
	difficulty domain.Difficulty
}

// incorrectCount prefers per-question results and falls back to the score for attempts
// stored without them.
func incorrectCount(a domain.Attempt) int {
	if len(a.PerQuestion) == 0 {
		return a.TotalQuestions - a.Score
	}
	missed := 0
	for _, q := range a.PerQuestion {
		if !q.IsCorrect {
			missed++
		}
	}
	return missed
}

// weakAreas ranks by incorrect count, ties broken by topic then difficulty.
func weakAreas(counts map[weakKey]int) []WeakArea {
	out := make([]WeakArea, 0, len(counts))
	for key, n := range counts {
		topic := key.topic
		if topic == "" {
			topic = "General"
		}
		out = append(out, WeakArea{
			Topic:          topic,
			Difficulty:     key.difficulty,
			IncorrectCount: n,
			Recommendation: fmt.Sprintf("Focus on %s questions at %s level", topic, key.difficulty),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IncorrectCount != out[j].IncorrectCount {
			return out[i].IncorrectCount > out[j].IncorrectCount
		}
		if out[i].Topic != out[j].Topic {
			return out[i].Topic < out[j].Topic
		}
		return out[i].Difficulty < out[j].Difficulty
	})
	if len(out) > maxWeakAreas {
		out = out[:maxWeakAreas]
	}
	return out
}

var newcomerRecommendations = []string{
	"Take your first quiz to start tracking your progress!",
	"Try different topics to discover your interests",
	"Set daily study goals to build a learning habit",
}

var starterRecommendations = []string{
	"Try different difficulty levels to challenge yourself",
	"Review the explanations of questions you missed",
	"Set daily study goals to track your progress",
}

// recommend applies the rules in order and pads with general advice up to three, keeping
// at most five.
func recommend(s Summary, hasRecent bool) []string {
	var out []string
	if s.TotalAttempts > 0 && s.AveragePercentage < 70 {
		out = append(out, "Focus on reviewing incorrect answers to improve your understanding")
	}
	if hasRecent && s.RecentAverage < s.AveragePercentage {
		out = append(out, "Your recent performance has declined. Consider taking more practice quizzes")
	}
	if len(s.WeakAreas) > 0 {
		out = append(out, fmt.Sprintf("Practice more %s questions to strengthen this area", s.WeakAreas[0].Topic))
	}
	switch {
	case s.CurrentStreak == 0:
		out = append(out, "Start a daily study habit to build consistency")
	case s.CurrentStreak < 7:
		out = append(out, fmt.Sprintf("Great! You're on a %d-day streak. Keep it up!", s.CurrentStreak))
	}
	if len(out) < minRecommendations {
		out = append(out, starterRecommendations...)
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// currentStreak counts consecutive days with an attempt, walking back from today until a gap.
func currentStreak(days map[string]struct{}, now time.Time) int {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	streak := 0
	for {
		if _, ok := days[day.Format(dateLayout)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

func longestStreak(days map[string]struct{}, loc *time.Location) int {
	sorted := make([]time.Time, 0, len(days))
	for key := range days {
		d, err := time.ParseInLocation(dateLayout, key, loc)
		if err != nil {
			continue
		}
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 0, 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// improvementRate compares the mean of the later half of attempts to the earlier half, in percent.
func improvementRate(ordered []domain.Attempt) float64 {
	if len(ordered) < 2 {
		return 0
	}
	mid := len(ordered) / 2
	first := meanPercentage(ordered[:mid])
	second := meanPercentage(ordered[mid:])
	if first == 0 {
		return 0
	}
	return round2((second - first) / first * 100)
}

func meanPercentage(attempts []domain.Attempt) float64 {
	sum := 0
	for _, a := range attempts {
		sum += a.Percentage
	}
	return float64(sum) / float64(len(attempts))
}

type grouper struct {
	order  []string
	groups map[string]*groupAcc
}

type groupAcc struct {
	attempts, sumPct, questions, correct int
}

func newGrouper() *grouper {
	return &grouper{groups: map[string]*groupAcc{}}
}

func (g *grouper) add(name string, a domain.Attempt) {
	acc, ok := g.groups[name]
	if !ok {
		acc = &groupAcc{}
		g.groups[name] = acc
		g.order = append(g.order, name)
	}
	acc.attempts++
	acc.sumPct += a.Percentage
	acc.questions += a.TotalQuestions
	acc.correct += a.Score
}

func (g *grouper) stats() []GroupStats {
	names := append([]string(nil), g.order...)
	sort.Strings(names)
	out := make([]GroupStats, 0, len(names))
	for _, name := range names {
		acc := g.groups[name]
		out = append(out, GroupStats{
			Name:              name,
			Attempts:          acc.attempts,
			AveragePercentage: round2(float64(acc.sumPct) / float64(acc.attempts)),
			TotalQuestions:    acc.questions,
			TotalCorrect:      acc.correct,
			Accuracy:          ratio(acc.correct, acc.questions),
		})
	}
	return out
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return round2(float64(part) / float64(whole) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
