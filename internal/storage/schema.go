package storage

// days is a 7-bit weekday mask (bit 0 = Monday).

var sqliteSchemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		timezone            TEXT NOT NULL DEFAULT 'UTC',
		xp                  INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
		level               INTEGER NOT NULL DEFAULT 1,
		streak              INTEGER NOT NULL DEFAULT 0,
		best_streak         INTEGER NOT NULL DEFAULT 0,
		last_evaluated_date TEXT NOT NULL DEFAULT '',
		created_at          TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		name       TEXT NOT NULL,
		type       TEXT NOT NULL DEFAULT 'count',
		days       INTEGER NOT NULL DEFAULT 127,
		difficulty INTEGER NOT NULL DEFAULT 1,
		goal       INTEGER NOT NULL DEFAULT 1,
		count      INTEGER NOT NULL DEFAULT 0,
		done       INTEGER NOT NULL DEFAULT 0,
		one_time   INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS xp_log (
		seq       INTEGER PRIMARY KEY AUTOINCREMENT,
		id        TEXT NOT NULL UNIQUE,
		user_id   TEXT NOT NULL REFERENCES users(id),
		amount    INTEGER NOT NULL,
		reason    TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_xp_log_user_ts ON xp_log(user_id, timestamp);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                  TEXT PRIMARY KEY,
		name                TEXT NOT NULL,
		timezone            TEXT NOT NULL DEFAULT 'UTC',
		xp                  BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
		level               INTEGER NOT NULL DEFAULT 1,
		streak              INTEGER NOT NULL DEFAULT 0,
		best_streak         INTEGER NOT NULL DEFAULT 0,
		last_evaluated_date TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		name       TEXT NOT NULL,
		type       TEXT NOT NULL DEFAULT 'count',
		days       INTEGER NOT NULL DEFAULT 127,
		difficulty INTEGER NOT NULL DEFAULT 1,
		goal       INTEGER NOT NULL DEFAULT 1,
		count      INTEGER NOT NULL DEFAULT 0,
		done       BOOLEAN NOT NULL DEFAULT FALSE,
		one_time   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS xp_log (
		seq       BIGSERIAL PRIMARY KEY,
		id        TEXT NOT NULL UNIQUE,
		user_id   TEXT NOT NULL REFERENCES users(id),
		amount    INTEGER NOT NULL,
		reason    TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_id ON tasks(user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_xp_log_user_ts ON xp_log(user_id, timestamp);`,
}
