package sqlinline

const QCreateKVTable = `--sql 3b7f2c1e-58a4-4d0e-9a61-0c2d5e8f4a17
CREATE TABLE IF NOT EXISTS progenai_kv (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const QSelectKV = `--sql 9c4e1a7b-2f36-4b85-b0d9-6e1f3a2c8d54
SELECT value::text FROM progenai_kv WHERE key = $1`

const QUpsertKV = `--sql e2a95d3c-7b14-4f6a-8c0e-5d9b1f47a2c3
INSERT INTO progenai_kv (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
