package storage

const schema = `
-- Every table is scoped by account so one database can hold several profiles.
CREATE TABLE IF NOT EXISTS decks (
    account TEXT NOT NULL,
    id TEXT NOT NULL,
    name TEXT NOT NULL,
    deleted INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT,

    PRIMARY KEY(account, id)
);

-- The 'cards' table stores flashcard content and SM-2 scheduling state.
CREATE TABLE IF NOT EXISTS cards (
    account TEXT NOT NULL,
    id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    term TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    pronunciation TEXT NOT NULL DEFAULT '',
    part_of_speech TEXT NOT NULL DEFAULT '',
    definitions TEXT NOT NULL DEFAULT '[]', -- JSON array
    examples TEXT NOT NULL DEFAULT '[]',    -- JSON array
    notes TEXT NOT NULL DEFAULT '',
    audio BLOB,
    repetition INTEGER NOT NULL DEFAULT 0,
    easiness_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    due_date TEXT NOT NULL,
    last_reviewed TEXT,
    deleted INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT,

    PRIMARY KEY(account, id)
);

CREATE INDEX IF NOT EXISTS cards_due ON cards(account, deleted, due_date);

-- Review history is append-only; the key doubles as the sync dedupe key.
CREATE TABLE IF NOT EXISTS study_logs (
    account TEXT NOT NULL,
    card_id TEXT NOT NULL,
    date TEXT NOT NULL,
    rating TEXT NOT NULL,

    PRIMARY KEY(account, card_id, date, rating)
);

CREATE TABLE IF NOT EXISTS profiles (
    account TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    native_language TEXT NOT NULL DEFAULT '',
    target_language TEXT NOT NULL DEFAULT '',
    xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    last_streak_check TEXT NOT NULL DEFAULT '',
    profile_last_updated TEXT
);

CREATE TABLE IF NOT EXISTS achievements (
    account TEXT NOT NULL,
    id TEXT NOT NULL,
    earned_at TEXT NOT NULL,

    PRIMARY KEY(account, id)
);
`
