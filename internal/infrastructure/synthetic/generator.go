// Package synthetic generates deterministic student feature batches for
// development seeding and tests. The generator is a pure function of its
// seed: the same configuration always yields byte-identical batches.
//
// It produces raw features only. Derived fields (engagement, predictions,
// risk, recommendations) always come from the scoring engine.
package synthetic

import (
	"fmt"
	"math"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
	"github.com/edupulse/student-insight-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultCount - размер синтетической популяции по умолчанию.
const DefaultCount = 200

// seedStride separates per-student generator streams so neighbouring
// students do not share correlated prefixes.
const seedStride = 12345

// Config controls batch generation.
type Config struct {
	// Count is the number of students to generate.
	Count int

	// Now anchors LastActivity timestamps. Zero means time.Now().UTC().
	Now time.Time
}

// DefaultConfig returns the standard development configuration.
func DefaultConfig() Config {
	return Config{Count: DefaultCount}
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEDED RNG (линейный конгруэнтный генератор)
// ══════════════════════════════════════════════════════════════════════════════

// rng is a 32-bit linear congruential generator. Quality is irrelevant
// here; reproducibility across runs and platforms is the requirement.
type rng struct {
	state uint64
}

func newRNG(seed uint64) *rng {
	return &rng{state: seed}
}

// next returns a float in [0, 1).
func (r *rng) next() float64 {
	r.state = (r.state*1664525 + 1013904223) % 4294967296
	return float64(r.state) / 4294967296
}

// between returns a float in [min, max).
func (r *rng) between(min, max float64) float64 {
	return min + r.next()*(max-min)
}

// intBetween returns an int in [min, max].
func (r *rng) intBetween(min, max int) int {
	return int(math.Floor(r.between(float64(min), float64(max)+1)))
}

// choice picks one element.
func (r *rng) choice(items []string) string {
	return items[int(math.Floor(r.next()*float64(len(items))))]
}

// ══════════════════════════════════════════════════════════════════════════════
// TEXT POOLS
// ══════════════════════════════════════════════════════════════════════════════

var (
	positiveKeywords = []string{"helpful", "engaging", "clear", "interesting", "challenging"}
	neutralKeywords  = []string{"average", "okay", "standard", "basic", "routine"}
	negativeKeywords = []string{"confusing", "difficult", "boring", "unclear", "overwhelming"}

	programs = []string{
		"Computer Science",
		"Data Science",
		"Software Engineering",
		"Information Technology",
		"Cybersecurity",
	}
)

func feedbackTexts(label student.SentimentLabel) []string {
	switch label {
	case student.SentimentPositive:
		return []string{
			"I really enjoyed this course and learned a lot.",
			"Great instructor and well-structured content.",
		}
	case student.SentimentNegative:
		return []string{
			"The material was confusing and hard to follow.",
			"Assignments were too difficult without proper guidance.",
		}
	default:
		return []string{
			"The course was okay, nothing special.",
			"Content was standard, met my expectations.",
		}
	}
}

func keywordPool(label student.SentimentLabel) []string {
	switch label {
	case student.SentimentPositive:
		return positiveKeywords
	case student.SentimentNegative:
		return negativeKeywords
	default:
		return neutralKeywords
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// Generate produces a deterministic batch of feature vectors.
func Generate(cfg Config) []*student.Features {
	if cfg.Count <= 0 {
		cfg.Count = DefaultCount
	}
	if cfg.Now.IsZero() {
		cfg.Now = timeutil.Now()
	}

	batch := make([]*student.Features, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		batch = append(batch, GenerateStudent(i, cfg.Now))
	}
	return batch
}

// GenerateStudent builds a single feature vector for the given index.
// Behavioural metrics are correlated through a latent engagement level,
// academic metrics through a latent performance level, so the resulting
// population exhibits the same clusters a real cohort would.
func GenerateStudent(index int, now time.Time) *student.Features {
	r := newRNG(uint64(index) * seedStride)
	id := student.ID(fmt.Sprintf("STU%05d", index+1))

	baseEngagement := r.between(0, 1)
	loginFrequency := r.between(baseEngagement*3+1, baseEngagement*12+5)
	sessionDuration := r.between(baseEngagement*30+10, baseEngagement*90+30)
	forumParticipation := r.between(0, baseEngagement*8+2)
	accessRate := r.between(baseEngagement*0.4+0.2, baseEngagement*0.3+0.7)
	timeGapAvg := r.between((1-baseEngagement)*5+1, (1-baseEngagement)*10+3)
	inactivityDays := r.intBetween(0, int(math.Floor((1-baseEngagement)*20+5)))

	trend := make([]float64, 0, student.TrendWeeks)
	trendBase := baseEngagement * 100
	for week := 0; week < student.TrendWeeks; week++ {
		trendBase = clamp(trendBase+r.between(-10, 10), 0, 100)
		trend = append(trend, round1(trendBase))
	}

	sentimentScore := r.between(-0.8, 0.9)
	sentimentLabel := student.DeriveSentimentLabel(sentimentScore)

	pool := keywordPool(sentimentLabel)
	keywords := []string{r.choice(pool), r.choice(pool), r.choice(pool)}

	basePerformance := r.between(0.3, 1)
	quizAvg := r.between(basePerformance*40+30, basePerformance*30+70)
	assignmentAvg := r.between(basePerformance*40+30, basePerformance*30+70)
	examAvg := r.between(basePerformance*40+30, basePerformance*30+70)
	timeSpent := r.between(baseEngagement*50+20, baseEngagement*80+100)
	progress := r.between(baseEngagement*40+30, baseEngagement*20+80)
	gpa := r.between(basePerformance*1.5+1.5, basePerformance*1+3)
	eti := r.between(basePerformance*40+30, basePerformance*30+70)

	program := r.choice(programs)

	// Roughly 70% of students have a known outcome score, correlated with
	// their academic averages.
	var actualScore *float64
	if r.next() > 0.3 {
		base := quizAvg*0.25 + assignmentAvg*0.25 + examAvg*0.35 + eti*0.15
		v := round1(clamp(base+r.between(-5, 5), 0, 100))
		actualScore = &v
	}

	return &student.Features{
		StudentID:            id,
		LoginFrequency:       round1(loginFrequency),
		SessionDuration:      round1(sessionDuration),
		ForumParticipation:   round1(forumParticipation),
		AssignmentAccessRate: student.Rate(round2(accessRate)),
		TimeGapAvg:           round1(timeGapAvg),
		InactivityDays:       inactivityDays,
		EngagementTrend:      trend,
		FeedbackTexts:        feedbackTexts(sentimentLabel),
		SentimentScore:       round2(sentimentScore),
		SentimentLabel:       sentimentLabel,
		TopKeywords:          keywords,
		QuizAvg:              student.Percent(round1(quizAvg)),
		AssignmentAvg:        student.Percent(round1(assignmentAvg)),
		ExamAvg:              student.Percent(round1(examAvg)),
		ETIScore:             student.Percent(round1(eti)),
		TimeSpentHours:       round1(timeSpent),
		ProgressPct:          student.Percent(round1(progress)),
		HistoricalGPA:        student.GPA(round2(gpa)),
		ActualScore:          actualScore,
		Program:              program,
		LastActivity:         timeutil.StartOfDay(now).AddDate(0, 0, -inactivityDays),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
