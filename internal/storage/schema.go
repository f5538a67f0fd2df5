package storage

// Schema is the SQL schema for the case database. Every child table is owned
// by a case and cascades on case deletion.
const Schema = `
CREATE TABLE IF NOT EXISTS cases (
    id          TEXT PRIMARY KEY,
    identifier  TEXT NOT NULL CHECK(identifier <> ''),
    description TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'open',
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS inputs (
    id          TEXT PRIMARY KEY,
    case_id     TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    content     TEXT NOT NULL CHECK(content <> ''),
    input_type  TEXT NOT NULL
                CHECK(input_type IN ('phrase', 'speech', 'narrative', 'situation')),
    metadata    TEXT NOT NULL DEFAULT '{}',
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS patterns (
    id               TEXT PRIMARY KEY,
    case_id          TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    description      TEXT NOT NULL,
    recurrence       TEXT NOT NULL,
    persistence      TEXT NOT NULL DEFAULT '',
    pressure_context TEXT NOT NULL DEFAULT '',
    contradictions   TEXT NOT NULL DEFAULT '',
    is_validated     INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS axis_assignments (
    id            TEXT PRIMARY KEY,
    case_id       TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    pattern_id    TEXT NULL REFERENCES patterns(id) ON DELETE SET NULL,
    axis_name     TEXT NOT NULL,
    justification TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS axis_states (
    id            TEXT PRIMARY KEY,
    case_id       TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    axis_name     TEXT NOT NULL,
    status        TEXT NOT NULL,
    value         TEXT NOT NULL DEFAULT '',
    justification TEXT NOT NULL DEFAULT '',
    UNIQUE(case_id, axis_name)
);

CREATE TABLE IF NOT EXISTS tensions (
    id            TEXT PRIMARY KEY,
    case_id       TEXT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
    description   TEXT NOT NULL,
    type          TEXT NOT NULL,
    axes_involved TEXT NOT NULL DEFAULT '[]',
    severity      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS threshold_evaluations (
    id         TEXT PRIMARY KEY,
    case_id    TEXT NOT NULL UNIQUE REFERENCES cases(id) ON DELETE CASCADE,
    score      INTEGER NOT NULL,
    status     TEXT NOT NULL,
    reasoning  TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS archetype_assignments (
    id             TEXT PRIMARY KEY,
    case_id        TEXT NOT NULL UNIQUE REFERENCES cases(id) ON DELETE CASCADE,
    archetype_name TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    fit_score      INTEGER NOT NULL DEFAULT 0,
    key_traits     TEXT NOT NULL DEFAULT '[]',
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cases_created ON cases(created_at);
CREATE INDEX IF NOT EXISTS idx_inputs_case ON inputs(case_id);
CREATE INDEX IF NOT EXISTS idx_patterns_case ON patterns(case_id);
CREATE INDEX IF NOT EXISTS idx_axis_assignments_case ON axis_assignments(case_id);
CREATE INDEX IF NOT EXISTS idx_tensions_case ON tensions(case_id);

CREATE VIRTUAL TABLE IF NOT EXISTS inputs_fts USING fts5(
    content,
    content='inputs',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS inputs_ai AFTER INSERT ON inputs BEGIN
    INSERT INTO inputs_fts(rowid, content) VALUES (new.rowid, new.content);
END;
CREATE TRIGGER IF NOT EXISTS inputs_ad AFTER DELETE ON inputs BEGIN
    INSERT INTO inputs_fts(inputs_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;
CREATE TRIGGER IF NOT EXISTS inputs_au AFTER UPDATE ON inputs BEGIN
    INSERT INTO inputs_fts(inputs_fts, rowid, content) VALUES('delete', old.rowid, old.content);
    INSERT INTO inputs_fts(rowid, content) VALUES (new.rowid, new.content);
END;
`

// childTables lists every table owned by a case, in deletion order.
var childTables = []string{
	"axis_assignments",
	"archetype_assignments",
	"threshold_evaluations",
	"tensions",
	"axis_states",
	"patterns",
	"inputs",
}

// pragmas configures each SQLite connection through the DSN. Both supported
// drivers understand the _pragma query parameter.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
