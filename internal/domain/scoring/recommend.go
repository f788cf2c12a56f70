package scoring

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOMMENDATION GENERATION
// Выход детерминирован для одинакового входа и стратегии: генератор
// сеется комбинацией seed стратегии и хеша идентификатора студента,
// никакой внешней случайности.
// ══════════════════════════════════════════════════════════════════════════════

// Границы генерации рекомендаций.
const (
	minRecommendations = 2
	maxRecommendations = 5

	minExpectedGain = 2.0  // исключающая нижняя граница, в баллах
	maxExpectedGain = 15.0 // включающая верхняя граница

	minEstimatedMinutes = 20
	maxEstimatedMinutes = 120
)

// contentTypes - пул типов рекомендуемого контента.
var contentTypes = []student.ContentType{
	student.ContentQuiz,
	student.ContentAssignment,
	student.ContentCourseModule,
	student.ContentVideoLecture,
	student.ContentPracticeExercise,
}

// topics - пул тем учебного контента.
var topics = []string{
	"Data Structures",
	"Algorithms",
	"Database Design",
	"Web Development",
	"Software Engineering",
	"Machine Learning",
	"Networks",
	"Operating Systems",
}

// RecommendStrategy управляет генерацией рекомендаций.
type RecommendStrategy struct {
	// Seed - зерно детерминированной генерации. Для одного студента
	// и одного seed выход воспроизводим байт-в-байт.
	Seed int64

	// Exploratory - явный режим без воспроизводимости: зерно берётся
	// из текущего времени. Используется только когда вызывающая
	// сторона сознательно отказалась от детерминизма.
	Exploratory bool
}

// DefaultStrategy возвращает детерминированную стратегию с нулевым seed.
func DefaultStrategy() RecommendStrategy {
	return RecommendStrategy{Seed: 0}
}

// seedFor выводит зерно генератора для конкретного студента.
// Хеш идентификатора разводит потоки разных студентов при общем seed.
func (s RecommendStrategy) seedFor(id student.ID) int64 {
	if s.Exploratory {
		return time.Now().UnixNano()
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return s.Seed ^ int64(h.Sum64())
}

// GenerateRecommendations генерирует от 2 до 5 рекомендаций, привязывая
// случайно выбранный тип контента и тему к одной из слабых зон студента.
func GenerateRecommendations(id student.ID, weakAreas []string, strategy RecommendStrategy) []student.Recommendation {
	rng := rand.New(rand.NewSource(strategy.seedFor(id)))

	count := minRecommendations + rng.Intn(maxRecommendations-minRecommendations+1)
	recs := make([]student.Recommendation, 0, count)

	for i := 0; i < count; i++ {
		contentType := contentTypes[rng.Intn(len(contentTypes))]
		topic := topics[rng.Intn(len(topics))]

		weakArea := WeakAreaGeneral
		if len(weakAreas) > 0 {
			weakArea = weakAreas[rng.Intn(len(weakAreas))]
		}

		// (2, 15]: вычитаем [0, 13) из верхней границы.
		gain := maxExpectedGain - rng.Float64()*(maxExpectedGain-minExpectedGain)
		gain = math.Round(gain*10) / 10

		minutes := minEstimatedMinutes + rng.Intn(maxEstimatedMinutes-minEstimatedMinutes+1)

		recs = append(recs, student.Recommendation{
			ID:               fmt.Sprintf("rec-%s-%d", id, i),
			Title:            fmt.Sprintf("%s: %s", contentType, topic),
			Type:             contentType,
			ExpectedGain:     gain,
			EstimatedMinutes: minutes,
			Explanation: fmt.Sprintf(
				"This %s targets %s and will help strengthen your understanding of %s.",
				strings.ToLower(string(contentType)), weakArea, strings.ToLower(topic),
			),
		})
	}

	return recs
}
