// Package postgres implements the Store interface using PostgreSQL.
package postgres

const schemaDDL = `
CREATE TABLE IF NOT EXISTS courses (
    code         TEXT NOT NULL,
    term         TEXT NOT NULL,
    institution  TEXT NOT NULL,
    title        TEXT NOT NULL,
    credits      DOUBLE PRECISION NOT NULL DEFAULT 0,
    description  TEXT,
    collected_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (institution, term, code)
);

CREATE TABLE IF NOT EXISTS sections (
    id           TEXT PRIMARY KEY,
    course_code  TEXT NOT NULL,
    term         TEXT NOT NULL,
    institution  TEXT NOT NULL,
    number       TEXT,
    instructor   TEXT,
    meetings     JSONB NOT NULL DEFAULT '[]',
    location     TEXT,
    credits      DOUBLE PRECISION NOT NULL DEFAULT 0,
    seats_open   INTEGER NOT NULL DEFAULT 0,
    collected_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sections_tuple ON sections (institution, term, course_code);

CREATE TABLE IF NOT EXISTS instructors (
    name             TEXT NOT NULL,
    institution      TEXT NOT NULL,
    rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
    rating_count     INTEGER NOT NULL DEFAULT 0,
    difficulty       DOUBLE PRECISION NOT NULL DEFAULT 0,
    would_take_again DOUBLE PRECISION NOT NULL DEFAULT 0,
    collected_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (institution, name)
);

CREATE TABLE IF NOT EXISTS sync_metadata (
    entity_type  TEXT NOT NULL,
    term         TEXT NOT NULL,
    institution  TEXT NOT NULL,
    status       TEXT NOT NULL,
    last_sync_at TIMESTAMPTZ,
    last_error   TEXT,
    attempt_id   TEXT,
    updated_at   TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (entity_type, term, institution)
);
CREATE INDEX IF NOT EXISTS idx_sync_metadata_institution ON sync_metadata (institution);

CREATE TABLE IF NOT EXISTS locks (
    key        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
);
`
