package sink

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the traffic database schema.
const Schema = `
-- One row per recorded exchange; payload is the JSON dump
CREATE TABLE IF NOT EXISTS traffic_records (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    method TEXT,
    status INTEGER,
    payload TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_traffic_records_created_at ON traffic_records(created_at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
