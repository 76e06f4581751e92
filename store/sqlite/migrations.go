package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the sale ledger store (SQLite).
var Migrations = migrate.NewGroup("saleledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_saleledger_sales",
			Version: "20220625000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS saleledger_sales (
    id                   TEXT PRIMARY KEY,
    initial_owner        TEXT NOT NULL,
    asset_locator_prefix TEXT NOT NULL DEFAULT '',
    max_supply           INTEGER NOT NULL,
    presale_start        TEXT NOT NULL,
    sale_start           TEXT NOT NULL,
    presale_price        TEXT NOT NULL DEFAULT '0',
    sale_price           TEXT NOT NULL DEFAULT '0',
    owner                TEXT NOT NULL,
    total_issued         INTEGER NOT NULL DEFAULT 0,
    default_royalty_bps  INTEGER NOT NULL DEFAULT 1000,
    balance              TEXT NOT NULL DEFAULT '0',
    version              INTEGER NOT NULL DEFAULT 1,
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now')),
    CHECK (total_issued <= max_supply)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS saleledger_sales`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_saleledger_tokens",
			Version: "20220625000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS saleledger_tokens (
    sale_id   TEXT NOT NULL REFERENCES saleledger_sales (id) ON DELETE CASCADE,
    token_id  INTEGER NOT NULL,
    owner     TEXT NOT NULL,
    mint_id   TEXT NOT NULL,
    minted_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (sale_id, token_id)
);

CREATE INDEX IF NOT EXISTS idx_saleledger_tokens_owner ON saleledger_tokens (sale_id, owner, token_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS saleledger_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_saleledger_royalty_overrides",
			Version: "20220625000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS saleledger_royalty_overrides (
    sale_id    TEXT NOT NULL REFERENCES saleledger_sales (id) ON DELETE CASCADE,
    token_id   INTEGER NOT NULL,
    bps        INTEGER NOT NULL CHECK (bps BETWEEN 0 AND 10000),
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (sale_id, token_id)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS saleledger_royalty_overrides`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_saleledger_journal",
			Version: "20220625000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS saleledger_journal (
    id           TEXT PRIMARY KEY,
    sale_id      TEXT NOT NULL,
    kind         TEXT NOT NULL,
    actor        TEXT NOT NULL DEFAULT '',
    counterparty TEXT NOT NULL DEFAULT '',
    amount       TEXT NOT NULL DEFAULT '0',
    quantity     INTEGER NOT NULL DEFAULT 0,
    first_token  INTEGER NOT NULL DEFAULT 0,
    last_token   INTEGER NOT NULL DEFAULT 0,
    bps          INTEGER NOT NULL DEFAULT 0,
    timestamp    TEXT NOT NULL DEFAULT (datetime('now')),
    metadata     TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_saleledger_journal_sale_ts ON saleledger_journal (sale_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_saleledger_journal_kind ON saleledger_journal (sale_id, kind, timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS saleledger_journal`)
				return err
			},
		},
	)
}
