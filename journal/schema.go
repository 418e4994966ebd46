package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	start_date TEXT NOT NULL,
	end_date TEXT NOT NULL,
	date_column TEXT NOT NULL,
	features TEXT NOT NULL,
	failed TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_tickers (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	ticker TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS cross_sections (
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	nrows INTEGER NOT NULL,
	PRIMARY KEY (run_id, name)
);

CREATE TABLE IF NOT EXISTS table_columns (
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	position INTEGER NOT NULL,
	column_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	PRIMARY KEY (run_id, name, position)
);

CREATE TABLE IF NOT EXISTS cells (
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	row_idx INTEGER NOT NULL,
	col_idx INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (run_id, name, row_idx, col_idx)
);

CREATE TABLE IF NOT EXISTS weight_tickers (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	ticker TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS weights (
	run_id TEXT NOT NULL,
	ticker_pos INTEGER NOT NULL,
	date TEXT NOT NULL,
	weight TEXT NOT NULL,
	PRIMARY KEY (run_id, ticker_pos, date)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
`
