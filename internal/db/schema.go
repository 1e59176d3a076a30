package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema declara las tablas del motor de identidad y votacion. Las
// restricciones de unicidad son la garantia autoritativa del sistema:
// un subject por clase, un member_id por clase, un email entre ambas
// clases y un voto por (identidad, artista, dia).
const schema = `
CREATE TABLE IF NOT EXISTS individual_members (
	member_id       TEXT CONSTRAINT individual_members_member_id_key PRIMARY KEY,
	subject_id      TEXT NOT NULL,
	email           TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	first_name      TEXT NOT NULL,
	last_name_kana  TEXT NOT NULL DEFAULT '',
	first_name_kana TEXT NOT NULL DEFAULT '',
	birth_date      TEXT NOT NULL,
	gender          TEXT NOT NULL DEFAULT '',
	phone_number    TEXT NOT NULL,
	nickname        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT individual_members_subject_id_key UNIQUE (subject_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS individual_members_email_key
	ON individual_members (lower(email));

CREATE TABLE IF NOT EXISTS sponsor_members (
	member_id       TEXT CONSTRAINT sponsor_members_member_id_key PRIMARY KEY,
	subject_id      TEXT NOT NULL,
	email           TEXT NOT NULL,
	last_name       TEXT NOT NULL,
	first_name      TEXT NOT NULL,
	company_name    TEXT NOT NULL,
	company_address TEXT NOT NULL DEFAULT '',
	department      TEXT NOT NULL DEFAULT '',
	position        TEXT NOT NULL DEFAULT '',
	contact_phone   TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT sponsor_members_subject_id_key UNIQUE (subject_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS sponsor_members_email_key
	ON sponsor_members (lower(email));

CREATE TABLE IF NOT EXISTS artists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	sort_order INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS votes (
	id                 UUID PRIMARY KEY,
	artist_id          TEXT NOT NULL REFERENCES artists (id),
	voter_identity_key TEXT NOT NULL,
	subject_id         TEXT NOT NULL DEFAULT '',
	voter_name         TEXT NOT NULL,
	message            TEXT NOT NULL DEFAULT '',
	created_on         DATE NOT NULL,
	is_approved        BOOLEAN NOT NULL DEFAULT false,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT votes_identity_artist_day_key
		UNIQUE (voter_identity_key, artist_id, created_on)
);

CREATE TABLE IF NOT EXISTS artist_tallies (
	artist_id  TEXT PRIMARY KEY REFERENCES artists (id),
	points     BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema aplica el DDL idempotente al arrancar.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
