package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_student_features",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_sync_runs",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS student_features (
    student_id              TEXT PRIMARY KEY,

    -- Behavioral features
    login_frequency         DOUBLE PRECISION NOT NULL DEFAULT 0,
    session_duration        DOUBLE PRECISION NOT NULL DEFAULT 0,
    forum_participation     DOUBLE PRECISION NOT NULL DEFAULT 0,
    assignment_access_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
    time_gap_avg            DOUBLE PRECISION NOT NULL DEFAULT 0,
    inactivity_days         INTEGER          NOT NULL DEFAULT 0,
    engagement_trend        DOUBLE PRECISION[] NOT NULL DEFAULT '{}',

    -- Sentiment features
    feedback_texts          TEXT[]           NOT NULL DEFAULT '{}',
    sentiment_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
    top_keywords            TEXT[]           NOT NULL DEFAULT '{}',

    -- Academic features
    quiz_avg                DOUBLE PRECISION NOT NULL DEFAULT 0,
    assignment_avg          DOUBLE PRECISION NOT NULL DEFAULT 0,
    exam_avg                DOUBLE PRECISION NOT NULL DEFAULT 0,
    eti_score               DOUBLE PRECISION NOT NULL DEFAULT 0,
    time_spent_hours        DOUBLE PRECISION NOT NULL DEFAULT 0,
    progress_pct            DOUBLE PRECISION NOT NULL DEFAULT 0,
    historical_gpa          DOUBLE PRECISION NOT NULL DEFAULT 0,
    actual_score            DOUBLE PRECISION,

    program                 TEXT             NOT NULL DEFAULT '',
    last_activity           TIMESTAMPTZ,
    updated_at              TIMESTAMPTZ      NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_student_features_updated_at
    ON student_features (updated_at);
`

const migration001Down = `
DROP TABLE IF EXISTS student_features;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS sync_runs (
    id           BIGSERIAL PRIMARY KEY,
    started_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    fetched      INTEGER     NOT NULL DEFAULT 0,
    accepted     INTEGER     NOT NULL DEFAULT 0,
    rejected     INTEGER     NOT NULL DEFAULT 0,
    error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at
    ON sync_runs (started_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS sync_runs;
`
