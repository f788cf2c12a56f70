package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edupulse/student-insight-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEATURE REPOSITORY
// Reads raw feature vectors out of the warehouse for ingest, and writes
// batches back (used by the synthetic seeder and ETL backfills).
// ══════════════════════════════════════════════════════════════════════════════

// featureColumns is the shared column list for feature queries.
const featureColumns = `
	student_id, login_frequency, session_duration, forum_participation,
	assignment_access_rate, time_gap_avg, inactivity_days, engagement_trend,
	feedback_texts, sentiment_score, top_keywords,
	quiz_avg, assignment_avg, exam_avg, eti_score,
	time_spent_hours, progress_pct, historical_gpa, actual_score,
	program, last_activity`

// FeatureRepository provides access to the student_features table.
type FeatureRepository struct {
	conn *Connection
}

// NewFeatureRepository creates a new FeatureRepository.
func NewFeatureRepository(conn *Connection) *FeatureRepository {
	return &FeatureRepository{conn: conn}
}

// withTimeout applies the connection's per-operation deadline. The
// deadline covers the whole operation including row scanning.
func (r *FeatureRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := r.conn.QueryTimeout(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return ctx, func() {}
}

// FetchAll returns every feature vector in the warehouse, ordered by
// student_id for a stable ingest order.
func (r *FeatureRepository) FetchAll(ctx context.Context) ([]*student.Features, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := "SELECT" + featureColumns + `
		FROM student_features
		ORDER BY student_id`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("feature_repo: fetch all: %w", err)
	}
	defer rows.Close()

	return scanFeatures(rows)
}

// FetchUpdatedSince returns feature vectors touched after the given time.
// Used by the incremental sync job.
func (r *FeatureRepository) FetchUpdatedSince(ctx context.Context, since time.Time) ([]*student.Features, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := "SELECT" + featureColumns + `
		FROM student_features
		WHERE updated_at > $1
		ORDER BY student_id`

	rows, err := r.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("feature_repo: fetch updated since: %w", err)
	}
	defer rows.Close()

	return scanFeatures(rows)
}

// UpsertBatch writes a batch of feature vectors in one transaction.
func (r *FeatureRepository) UpsertBatch(ctx context.Context, batch []*student.Features) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	const query = `
		INSERT INTO student_features (
			student_id, login_frequency, session_duration, forum_participation,
			assignment_access_rate, time_gap_avg, inactivity_days, engagement_trend,
			feedback_texts, sentiment_score, top_keywords,
			quiz_avg, assignment_avg, exam_avg, eti_score,
			time_spent_hours, progress_pct, historical_gpa, actual_score,
			program, last_activity, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, NOW()
		)
		ON CONFLICT (student_id) DO UPDATE SET
			login_frequency = EXCLUDED.login_frequency,
			session_duration = EXCLUDED.session_duration,
			forum_participation = EXCLUDED.forum_participation,
			assignment_access_rate = EXCLUDED.assignment_access_rate,
			time_gap_avg = EXCLUDED.time_gap_avg,
			inactivity_days = EXCLUDED.inactivity_days,
			engagement_trend = EXCLUDED.engagement_trend,
			feedback_texts = EXCLUDED.feedback_texts,
			sentiment_score = EXCLUDED.sentiment_score,
			top_keywords = EXCLUDED.top_keywords,
			quiz_avg = EXCLUDED.quiz_avg,
			assignment_avg = EXCLUDED.assignment_avg,
			exam_avg = EXCLUDED.exam_avg,
			eti_score = EXCLUDED.eti_score,
			time_spent_hours = EXCLUDED.time_spent_hours,
			progress_pct = EXCLUDED.progress_pct,
			historical_gpa = EXCLUDED.historical_gpa,
			actual_score = EXCLUDED.actual_score,
			program = EXCLUDED.program,
			last_activity = EXCLUDED.last_activity,
			updated_at = NOW()`

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		for _, f := range batch {
			_, err := tx.Exec(ctx, query,
				string(f.StudentID),
				f.LoginFrequency,
				f.SessionDuration,
				f.ForumParticipation,
				float64(f.AssignmentAccessRate),
				f.TimeGapAvg,
				f.InactivityDays,
				f.EngagementTrend,
				f.FeedbackTexts,
				f.SentimentScore,
				f.TopKeywords,
				float64(f.QuizAvg),
				float64(f.AssignmentAvg),
				float64(f.ExamAvg),
				float64(f.ETIScore),
				f.TimeSpentHours,
				float64(f.ProgressPct),
				float64(f.HistoricalGPA),
				f.ActualScore,
				f.Program,
				f.LastActivity,
			)
			if err != nil {
				return fmt.Errorf("feature_repo: upsert %s: %w", f.StudentID, err)
			}
		}
		return nil
	})
}

// RecordSyncRun writes an audit row for a completed (or failed) sync.
func (r *FeatureRepository) RecordSyncRun(ctx context.Context, startedAt, completedAt time.Time, fetched, accepted, rejected int, syncErr error) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var errText *string
	if syncErr != nil {
		s := syncErr.Error()
		errText = &s
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO sync_runs (started_at, completed_at, fetched, accepted, rejected, error)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		startedAt, completedAt, fetched, accepted, rejected, errText,
	)
	if err != nil {
		return fmt.Errorf("feature_repo: record sync run: %w", err)
	}
	return nil
}

// scanFeatures maps rows onto domain feature vectors. The sentiment label
// is derived here rather than stored: it is a pure function of the score.
func scanFeatures(rows pgx.Rows) ([]*student.Features, error) {
	var result []*student.Features

	for rows.Next() {
		var (
			f            student.Features
			id           string
			accessRate   float64
			quiz         float64
			assignment   float64
			exam         float64
			eti          float64
			progress     float64
			gpa          float64
			lastActivity *time.Time
		)

		err := rows.Scan(
			&id,
			&f.LoginFrequency,
			&f.SessionDuration,
			&f.ForumParticipation,
			&accessRate,
			&f.TimeGapAvg,
			&f.InactivityDays,
			&f.EngagementTrend,
			&f.FeedbackTexts,
			&f.SentimentScore,
			&f.TopKeywords,
			&quiz,
			&assignment,
			&exam,
			&eti,
			&f.TimeSpentHours,
			&progress,
			&gpa,
			&f.ActualScore,
			&f.Program,
			&lastActivity,
		)
		if err != nil {
			return nil, fmt.Errorf("feature_repo: scan row: %w", err)
		}

		f.StudentID = student.ID(id)
		f.AssignmentAccessRate = student.Rate(accessRate)
		f.QuizAvg = student.Percent(quiz)
		f.AssignmentAvg = student.Percent(assignment)
		f.ExamAvg = student.Percent(exam)
		f.ETIScore = student.Percent(eti)
		f.ProgressPct = student.Percent(progress)
		f.HistoricalGPA = student.GPA(gpa)
		f.SentimentLabel = student.DeriveSentimentLabel(f.SentimentScore)
		if lastActivity != nil {
			f.LastActivity = *lastActivity
		}

		result = append(result, &f)
	}

	return result, rows.Err()
}
