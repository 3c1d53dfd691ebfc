package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	id "traitsync/pkg/domain"
	dErrors "traitsync/pkg/domain-errors"
)

// PostgresStore persists profiles and accounts with their trait bags in
// jsonb columns. Trait merge policy is applied in Go inside a row-locking
// transaction so concurrent writers for the same profile serialize on the
// row rather than clobbering each other's preserve-existing decisions.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres opens a Postgres-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is idempotent; the server applies it at boot.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id            uuid PRIMARY KEY,
	tenant_id     uuid NOT NULL,
	external_id   text NOT NULL DEFAULT '',
	anonymous_id  text NOT NULL DEFAULT '',
	email         text NOT NULL DEFAULT '',
	domain        text NOT NULL DEFAULT '',
	name          text NOT NULL DEFAULT '',
	first_name    text NOT NULL DEFAULT '',
	last_name     text NOT NULL DEFAULT '',
	last_known_ip text NOT NULL DEFAULT '',
	last_seen_at  timestamptz,
	traits        jsonb NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS profiles_tenant_email_idx ON profiles (tenant_id, email);
CREATE INDEX IF NOT EXISTS profiles_tenant_domain_idx ON profiles (tenant_id, domain);
CREATE INDEX IF NOT EXISTS profiles_discovered_from_idx ON profiles (tenant_id, (traits->>'augur/discovered_from_domain'));

CREATE TABLE IF NOT EXISTS accounts (
	id          uuid PRIMARY KEY,
	tenant_id   uuid NOT NULL,
	external_id text NOT NULL DEFAULT '',
	domain      text NOT NULL DEFAULT '',
	name        text NOT NULL DEFAULT '',
	traits      jsonb NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS accounts_tenant_domain_idx ON accounts (tenant_id, domain);
`

const profileColumns = `id, external_id, anonymous_id, email, domain, name, first_name, last_name, last_known_ip, last_seen_at, traits`

func (s *PostgresStore) GetProfile(ctx context.Context, tenant id.TenantID, ref Ref) (*Profile, error) {
	return s.queryProfile(ctx, s.db, tenant, ref, false)
}

func (s *PostgresStore) GetAccount(ctx context.Context, tenant id.TenantID, ref AccountRef) (*Account, error) {
	return s.queryAccount(ctx, s.db, tenant, ref, false)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) queryProfile(ctx context.Context, q querier, tenant id.TenantID, ref Ref, forUpdate bool) (*Profile, error) {
	if ref.Empty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing identifier for profile")
	}
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE tenant_id = $1 AND (
			(id = $2 AND $2 <> '00000000-0000-0000-0000-000000000000'::uuid)
			OR (external_id <> '' AND external_id = $3)
			OR (email <> '' AND email = $4)
			OR (anonymous_id <> '' AND anonymous_id = $5)
		)
		ORDER BY (id = $2) DESC, (external_id = $3) DESC, (email = $4) DESC
		LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		p         Profile
		rawID     string
		lastSeen  sql.NullTime
		rawTraits []byte
	)
	err := q.QueryRowContext(ctx, query,
		tenant.String(), ref.ID.String(), ref.ExternalID, ref.Email, ref.AnonymousID,
	).Scan(&rawID, &p.ExternalID, &p.AnonymousID, &p.Email, &p.Domain, &p.Name,
		&p.FirstName, &p.LastName, &p.LastKnownIP, &lastSeen, &rawTraits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	if p.ID, err = id.ParseProfileID(rawID); err != nil {
		return nil, fmt.Errorf("profile row id: %w", err)
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		p.LastSeenAt = &t
	}
	if err := json.Unmarshal(rawTraits, &p.Traits); err != nil {
		return nil, fmt.Errorf("decode profile traits: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) queryAccount(ctx context.Context, q querier, tenant id.TenantID, ref AccountRef, forUpdate bool) (*Account, error) {
	if ref.Empty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing identifier for account")
	}
	query := `SELECT id, external_id, domain, name, traits FROM accounts
		WHERE tenant_id = $1 AND (
			(id = $2 AND $2 <> '00000000-0000-0000-0000-000000000000'::uuid)
			OR (external_id <> '' AND external_id = $3)
			OR (domain <> '' AND domain = $4)
		)
		ORDER BY (id = $2) DESC, (external_id = $3) DESC
		LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		a         Account
		rawID     string
		rawTraits []byte
	)
	err := q.QueryRowContext(ctx, query,
		tenant.String(), ref.ID.String(), ref.ExternalID, ref.Domain,
	).Scan(&rawID, &a.ExternalID, &a.Domain, &a.Name, &rawTraits)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}

	if a.ID, err = id.ParseAccountID(rawID); err != nil {
		return nil, fmt.Errorf("account row id: %w", err)
	}
	if err := json.Unmarshal(rawTraits, &a.Traits); err != nil {
		return nil, fmt.Errorf("decode account traits: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) WriteProfileTraits(ctx context.Context, tenant id.TenantID, ref Ref, traits TraitSet) (*Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	p, err := s.queryProfile(ctx, tx, tenant, ref, true)
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		p = &Profile{
			ID:          ref.ID,
			ExternalID:  ref.ExternalID,
			Email:       ref.Email,
			AnonymousID: ref.AnonymousID,
			Traits:      make(map[string]any),
		}
		if p.ID.IsNil() {
			p.ID = id.NewProfileID()
		}
	case err != nil:
		return nil, err
	}

	for key, tr := range traits {
		p.ApplyTrait(key, tr)
	}

	rawTraits, err := json.Marshal(p.Traits)
	if err != nil {
		return nil, fmt.Errorf("encode profile traits: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			anonymous_id = EXCLUDED.anonymous_id,
			email = EXCLUDED.email,
			domain = EXCLUDED.domain,
			name = EXCLUDED.name,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			last_known_ip = EXCLUDED.last_known_ip,
			last_seen_at = EXCLUDED.last_seen_at,
			traits = EXCLUDED.traits`,
		p.ID.String(), p.ExternalID, p.AnonymousID, p.Email, p.Domain, p.Name,
		p.FirstName, p.LastName, p.LastKnownIP, nullTime(p.LastSeenAt), rawTraits,
		tenant.String())
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) WriteAccountTraits(ctx context.Context, tenant id.TenantID, ref AccountRef, traits TraitSet) (*Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	a, err := s.queryAccount(ctx, tx, tenant, ref, true)
	switch {
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		a = &Account{
			ID:         ref.ID,
			ExternalID: ref.ExternalID,
			Domain:     ref.Domain,
			Traits:     make(map[string]any),
		}
		if a.ID.IsNil() {
			a.ID = id.NewAccountID()
		}
	case err != nil:
		return nil, err
	}

	for key, tr := range traits {
		a.ApplyTrait(key, tr)
	}

	rawTraits, err := json.Marshal(a.Traits)
	if err != nil {
		return nil, fmt.Errorf("encode account traits: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (id, external_id, domain, name, traits, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			domain = EXCLUDED.domain,
			name = EXCLUDED.name,
			traits = EXCLUDED.traits`,
		a.ID.String(), a.ExternalID, a.Domain, a.Name, rawTraits, tenant.String())
	if err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) AggregateByDomain(ctx context.Context, tenant id.TenantID, domain string) (*DomainAggregate, error) {
	agg := &DomainAggregate{BySource: make(map[string]int)}

	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), count(*) FILTER (WHERE email = '')
		FROM profiles
		WHERE tenant_id = $1 AND (
			domain = $2
			OR traits->>$3 = $2
			OR traits->>$4 = $2
		)`,
		tenant.String(), domain, KeyCompanyDomain, KeyDomain,
	).Scan(&agg.Total, &agg.Anonymous)
	if err != nil {
		return nil, fmt.Errorf("aggregate by domain: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT traits->>$3, count(*)
		FROM profiles
		WHERE tenant_id = $1 AND (
			domain = $2
			OR traits->>$4 = $2
			OR traits->>$5 = $2
		) AND traits->>$3 IS NOT NULL
		GROUP BY traits->>$3`,
		tenant.String(), domain, KeySource, KeyCompanyDomain, KeyDomain)
	if err != nil {
		return nil, fmt.Errorf("aggregate sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source bucket: %w", err)
		}
		agg.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source buckets: %w", err)
	}
	return agg, nil
}

func (s *PostgresStore) CountDiscoveredFrom(ctx context.Context, tenant id.TenantID, domain string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM profiles
		WHERE tenant_id = $1 AND traits->>$2 = $3`,
		tenant.String(), KeyDiscoveredFromDomain, domain,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count discovered from: %w", err)
	}
	return count, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
