package store

// schema is applied on every Open; every statement is idempotent so
// re-opening an existing database file is a no-op migration.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	kind            TEXT NOT NULL DEFAULT 'import',
	status          TEXT NOT NULL DEFAULT 'pending',
	storage_dir     TEXT NOT NULL,
	progress_current INTEGER NOT NULL DEFAULT 0,
	progress_total   INTEGER NOT NULL DEFAULT 0,
	error_count      INTEGER NOT NULL DEFAULT 0,
	current_filename TEXT NOT NULL DEFAULT '',
	message          TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	started_at       TEXT,
	completed_at     TEXT
);

CREATE TABLE IF NOT EXISTS files (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id                   INTEGER NOT NULL REFERENCES jobs(id),
	original_path            TEXT NOT NULL,
	original_filename        TEXT NOT NULL,
	file_size                INTEGER NOT NULL DEFAULT 0,
	content_hash             TEXT,
	perceptual_hash          TEXT,
	chosen_timestamp         TEXT,
	timestamp_source         TEXT,
	confidence               TEXT NOT NULL DEFAULT 'none',
	candidates_json          TEXT,
	mime_type                TEXT,
	width                    INTEGER,
	height                   INTEGER,
	thumbnail_path           TEXT,
	processing_error         TEXT,
	final_timestamp          TEXT,
	reviewed_at              TEXT,
	discarded                INTEGER NOT NULL DEFAULT 0,
	exact_group_id           TEXT,
	exact_group_confidence   TEXT,
	similar_group_id         TEXT,
	similar_group_confidence TEXT,
	similar_group_kind       TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_job_id ON files(job_id);
CREATE INDEX IF NOT EXISTS idx_files_exact_group ON files(exact_group_id);
CREATE INDEX IF NOT EXISTS idx_files_similar_group ON files(similar_group_id);
CREATE INDEX IF NOT EXISTS idx_files_original_filename ON files(job_id, original_filename);

CREATE TABLE IF NOT EXISTS tags (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL UNIQUE,
	use_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS file_tags (
	file_id INTEGER NOT NULL REFERENCES files(id),
	tag_id  INTEGER NOT NULL REFERENCES tags(id),
	PRIMARY KEY (file_id, tag_id)
);

CREATE TABLE IF NOT EXISTS user_decisions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id         INTEGER NOT NULL REFERENCES files(id),
	action          TEXT NOT NULL,
	final_timestamp TEXT,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
