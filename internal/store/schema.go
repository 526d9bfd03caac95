package store

const schema = `
CREATE TABLE IF NOT EXISTS calendars (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	google_calendar_id TEXT NOT NULL,
	permission TEXT DEFAULT 'read', -- 'read' or 'read_write'
	color TEXT,
	priority INTEGER DEFAULT 5, -- 1-10, lower = higher priority
	active INTEGER DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS instructions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL, -- 'system', 'scheduling', 'communication'
	instruction TEXT NOT NULL,
	source TEXT DEFAULT 'user', -- 'user', 'ai_learned', 'default'
	active INTEGER DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS knowledge (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL, -- 'business', 'people', 'preferences', 'task_types'
	subject TEXT NOT NULL,
	content TEXT NOT NULL,
	source TEXT DEFAULT 'conversation', -- 'conversation', 'inferred', 'settings'
	confidence REAL DEFAULT 1.0,
	active INTEGER DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scheduling_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_type TEXT NOT NULL, -- 'time_block', 'buffer', 'preference'
	name TEXT NOT NULL,
	config TEXT NOT NULL, -- JSON rule configuration
	active INTEGER DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	summary TEXT,
	started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL,
	role TEXT NOT NULL, -- 'user', 'assistant', 'system'
	content TEXT NOT NULL,
	metadata TEXT, -- JSON: function calls, actions taken
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(conversation_id) REFERENCES conversations(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS task_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	category TEXT,
	duration_minutes INTEGER NOT NULL,
	scheduled_at DATETIME NOT NULL,
	completed INTEGER DEFAULT 0,
	actual_duration_minutes INTEGER,
	google_event_id TEXT,
	calendar_name TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS todo_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT,
	priority TEXT DEFAULT 'medium', -- 'high', 'medium', 'low'
	start_date DATETIME,
	due_date DATETIME,
	estimated_minutes INTEGER,
	completed INTEGER DEFAULT 0,
	completed_at DATETIME,
	scheduled_event_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
