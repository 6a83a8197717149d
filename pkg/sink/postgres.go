package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/zig365-aanbod/pkg/listing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmcloughlin/geohash"
)

// geohashPrecision gives cells of roughly 5x5 m.
const geohashPrecision = 9

// pgExecer is the subset of *pgxpool.Pool used by the Postgres sink.
type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres inserts one row per record. Rows are never upserted: running
// twice stores every listing twice.
type Postgres struct {
	db    pgExecer
	pool  *pgxpool.Pool
	table string
	runID string
}

// NewPostgres writes to table through db. The caller owns db.
func NewPostgres(db pgExecer, table, runID string) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres connection is required")
	}
	if table == "" {
		return nil, fmt.Errorf("postgres table is required")
	}
	return &Postgres{db: db, table: table, runID: runID}, nil
}

// OpenPostgres connects with dsn, pings, and creates the table when
// missing.
func OpenPostgres(ctx context.Context, dsn, table, runID string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p, err := NewPostgres(pool, table, runID)
	if err != nil {
		pool.Close()
		return nil, err
	}
	p.pool = pool

	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) tableIdent() string {
	return pgx.Identifier{p.table}.Sanitize()
}

// EnsureSchema creates the listings table and its indexes if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	table := p.tableIdent()
	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		row_id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		listing_id TEXT NOT NULL,
		url_key TEXT,
		straat TEXT,
		huisnummer TEXT NOT NULL,
		postcode TEXT,
		stad TEXT,
		verhuurder TEXT,
		type TEXT,
		huur NUMERIC(12,2),
		beschikbaar_vanaf TEXT,
		publicatie_datum TEXT,
		sluitings_datum TEXT,
		reacties INTEGER,
		kan_reageren BOOLEAN,
		huurtoeslag BOOLEAN,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		geohash TEXT,
		record JSONB NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`, table)

	if _, err := p.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (listing_id)`,
			pgx.Identifier{"idx_" + p.table + "_listing_id"}.Sanitize(), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (geohash)`,
			pgx.Identifier{"idx_" + p.table + "_geohash"}.Sanitize(), table),
	}
	for _, stmt := range indexes {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}

// Push inserts the record as a new row.
func (p *Postgres) Push(ctx context.Context, record listing.Record) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	sql := fmt.Sprintf(`
	INSERT INTO %s (
		run_id, listing_id, url_key, straat, huisnummer, postcode, stad,
		verhuurder, type, huur, beschikbaar_vanaf, publicatie_datum,
		sluitings_datum, reacties, kan_reageren, huurtoeslag, lat, lon,
		geohash, record
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, p.tableIdent())

	_, err = p.db.Exec(ctx, sql,
		p.runID,
		record.ID.String(),
		record.URLKey,
		record.Street,
		record.HouseNumber,
		record.PostalCode,
		record.City,
		record.Landlord,
		record.DwellingType,
		record.Rent,
		record.AvailableFrom,
		record.PublishedAt,
		record.ClosingAt,
		record.Reactions,
		record.CanReact,
		record.RentSubsidyEligible,
		record.Latitude,
		record.Longitude,
		geohashOf(record),
		string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert listing %s: %w", record.ID, err)
	}
	return nil
}

// Close closes the pool if the sink opened it.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// geohashOf encodes the record's coordinates, or nil when either is absent.
func geohashOf(r listing.Record) *string {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	h := geohash.EncodeWithPrecision(*r.Latitude, *r.Longitude, geohashPrecision)
	return &h
}
