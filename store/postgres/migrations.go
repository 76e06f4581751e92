package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the sale ledger store.
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
    max_supply           BIGINT NOT NULL,
    presale_start        TIMESTAMPTZ NOT NULL,
    sale_start           TIMESTAMPTZ NOT NULL,
    presale_price        TEXT NOT NULL DEFAULT '0',
    sale_price           TEXT NOT NULL DEFAULT '0',
    owner                TEXT NOT NULL,
    total_issued         BIGINT NOT NULL DEFAULT 0,
    default_royalty_bps  INT NOT NULL DEFAULT 1000,
    balance              TEXT NOT NULL DEFAULT '0',
    version              BIGINT NOT NULL DEFAULT 1,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
    token_id  BIGINT NOT NULL,
    owner     TEXT NOT NULL,
    mint_id   TEXT NOT NULL,
    minted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
    token_id   BIGINT NOT NULL,
    bps        INT NOT NULL CHECK (bps BETWEEN 0 AND 10000),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
    quantity     BIGINT NOT NULL DEFAULT 0,
    first_token  BIGINT NOT NULL DEFAULT 0,
    last_token   BIGINT NOT NULL DEFAULT 0,
    bps          INT NOT NULL DEFAULT 0,
    timestamp    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    metadata     JSONB NOT NULL DEFAULT '{}'
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
