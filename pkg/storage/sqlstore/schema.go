package sqlstore

// schema is portable across SQLite and PostgreSQL. Timestamps are TEXT in
// storage.TimeFormat so lexical order is time order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		idea_seed TEXT NOT NULL,
		constraints_json TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		input_json TEXT NOT NULL,
		output_json TEXT,
		error_text TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS runs_project_kind_started ON runs (project_id, kind, started_at)`,
	`CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		name TEXT NOT NULL,
		blob_key TEXT NOT NULL,
		content_type TEXT NOT NULL,
		bytes BIGINT NOT NULL,
		sha256 TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS artifacts_project_name ON artifacts (project_id, name)`,
	`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		tags_json TEXT NOT NULL,
		salience DOUBLE PRECISION NOT NULL,
		source TEXT NOT NULL,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS memories_scope ON memories (user_id, project_id, is_deleted, created_at)`,
	`CREATE TABLE IF NOT EXISTS memory_vectors (
		memory_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT,
		vector_id TEXT NOT NULL,
		embedding_model TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}
