// Package population реализует хранилище популяции студентов:
// неизменяемые снимки с атомарной публикацией, пакетный инжест
// с отбраковкой отдельных записей и фильтрацию в порядке вставки.
package population

import (
	"sync"
	"sync/atomic"

	"github.com/edupulse/student-insight-hub/internal/domain/scoring"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"
	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// Scorer - скоринговый движок с точки зрения хранилища.
type Scorer interface {
	Score(f *student.Features, strategy scoring.RecommendStrategy) (*student.Scored, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// snapshot - неизменяемое состояние популяции. Публикуется целиком,
// после публикации не модифицируется: читатели работают без блокировок.
type snapshot struct {
	ordered []*student.Scored
	byID    map[student.ID]int
	version uint64
}

func emptySnapshot() *snapshot {
	return &snapshot{
		ordered: []*student.Scored{},
		byID:    map[student.ID]int{},
	}
}

// clone готовит изменяемую копию для следующей публикации.
func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		ordered: make([]*student.Scored, len(s.ordered)),
		byID:    make(map[student.ID]int, len(s.byID)),
		version: s.version + 1,
	}
	copy(next.ordered, s.ordered)
	for id, idx := range s.byID {
		next.byID[id] = idx
	}
	return next
}

// ══════════════════════════════════════════════════════════════════════════════
// INGEST REPORT
// ══════════════════════════════════════════════════════════════════════════════

// RejectedRecord - запись, отклонённая при инжесте, с причиной.
type RejectedRecord struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// IngestReport - итог пакетного инжеста. Отклонение отдельных записей
// не отменяет приём остальных.
type IngestReport struct {
	Total    int              `json:"total"`
	Accepted int              `json:"accepted"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store - хранилище скорингованных студентов. Записи сериализуются
// мьютексом, чтение идёт по опубликованному снимку без блокировок.
type Store struct {
	mu       sync.Mutex
	current  atomic.Pointer[snapshot]
	scorer   Scorer
	strategy scoring.RecommendStrategy
}

// NewStore создаёт пустое хранилище с заданным движком и стратегией
// рекомендаций.
func NewStore(scorer Scorer, strategy scoring.RecommendStrategy) *Store {
	s := &Store{
		scorer:   scorer,
		strategy: strategy,
	}
	s.current.Store(emptySnapshot())
	return s
}

// Ingest скорит и принимает пакет признаков. Существующие записи
// заменяются на месте, новые добавляются в конец. Невалидные записи
// отклоняются поштучно; хранилище остаётся в последнем валидном
// состоянии относительно каждой записи.
func (s *Store) Ingest(batch []*student.Features) (IngestReport, error) {
	if len(batch) == 0 {
		return IngestReport{}, shared.ErrEmptyBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	report := IngestReport{Total: len(batch)}

	for _, f := range batch {
		scored, err := s.scorer.Score(f, s.strategy)
		if err != nil {
			report.Rejected = append(report.Rejected, RejectedRecord{
				StudentID: string(f.StudentID),
				Reason:    err.Error(),
			})
			continue
		}

		if idx, ok := next.byID[scored.StudentID]; ok {
			next.ordered[idx] = scored
		} else {
			next.byID[scored.StudentID] = len(next.ordered)
			next.ordered = append(next.ordered, scored)
		}
		report.Accepted++
	}

	s.current.Store(next)
	return report, nil
}

// RescoreAll заново применяет движок к признакам каждой хранимой записи
// и публикует результат одним снимком: читатели не видят популяцию,
// пересчитанную наполовину. Запись, не прошедшая пересчёт, сохраняет
// прежнее состояние.
func (s *Store) RescoreAll() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	next := cur.clone()

	rescored := 0
	for idx, old := range cur.ordered {
		scored, err := s.scorer.Score(old.Features.Clone(), s.strategy)
		if err != nil {
			continue
		}
		next.ordered[idx] = scored
		rescored++
	}

	s.current.Store(next)
	return rescored, nil
}

// SetScorer заменяет скоринговый движок, например после перезагрузки
// профиля весов. Пересчёт существующих записей остаётся за вызывающим.
func (s *Store) SetScorer(scorer Scorer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scorer = scorer
}

// Get возвращает студента по идентификатору.
func (s *Store) Get(id student.ID) (*student.Scored, error) {
	snap := s.current.Load()
	idx, ok := snap.byID[id]
	if !ok {
		return nil, shared.NewDomainError("population", "get", shared.ErrStudentNotFound,
			"student "+string(id)+" is not in the population")
	}
	return snap.ordered[idx], nil
}

// Filter возвращает подпоследовательность студентов, удовлетворяющих
// всем предикатам, в порядке вставки. Пустой фильтр возвращает всю
// популяцию; отсутствие совпадений - пустой срез, не ошибку.
func (s *Store) Filter(f Filter) []*student.Scored {
	snap := s.current.Load()

	matched := make([]*student.Scored, 0, len(snap.ordered))
	for _, rec := range snap.ordered {
		if f.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// Snapshot возвращает текущую популяцию в порядке вставки.
// Возвращаемый срез принадлежит опубликованному снимку и не должен
// модифицироваться.
func (s *Store) Snapshot() []*student.Scored {
	return s.current.Load().ordered
}

// Size возвращает размер популяции.
func (s *Store) Size() int {
	return len(s.current.Load().ordered)
}

// Version возвращает номер опубликованного снимка. Растёт с каждым
// Ingest и RescoreAll; используется кэшами как ключ инвалидации.
func (s *Store) Version() uint64 {
	return s.current.Load().version
}
