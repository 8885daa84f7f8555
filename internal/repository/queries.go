package repository

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bot_users (
    telegram_id    BIGINT PRIMARY KEY,
    salesperson_id TEXT NOT NULL UNIQUE,
    username       TEXT NOT NULL,
    role           TEXT NOT NULL DEFAULT 'salesperson',
    language       TEXT NOT NULL DEFAULT 'en',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sent_reminders (
    lead_id   TEXT NOT NULL,
    remind_at TIMESTAMPTZ NOT NULL,
    sent_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (lead_id, remind_at)
);
`

const insertBotUserSQL = `
INSERT INTO bot_users (telegram_id, salesperson_id, username, role)
VALUES ($1, $2, $3, $4) ON CONFLICT (salesperson_id) DO NOTHING`

const selectBotUserSQL = `
SELECT telegram_id, salesperson_id, username, role, language, created_at
FROM bot_users WHERE telegram_id = $1`

const selectAllBotUsersSQL = `
SELECT telegram_id, salesperson_id, username, role, language, created_at
FROM bot_users ORDER BY created_at`

const insertSentReminderSQL = `
INSERT INTO sent_reminders (lead_id, remind_at)
VALUES ($1, $2) ON CONFLICT (lead_id, remind_at) DO NOTHING`

const deleteSentRemindersSQL = "DELETE FROM sent_reminders WHERE remind_at < $1"
