package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zettagrid/geocontrol/contexts/geo/internal/domain"
)

var (
	ErrInvalidQuery = errors.New("invalid query")
	ErrQueryFailed  = errors.New("query failed")
)

const visitorCountryTable = "public.visitor_country"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar) //nolint:gochecknoglobals // squirrel recommends this

type PostgresCacheOpt func(repo *PostgresCache)

// WithPostgresClock replaces time.Now for deciding on expiry.
func WithPostgresClock(now func() time.Time) PostgresCacheOpt {
	return func(repo *PostgresCache) {
		repo.now = now
	}
}

// NewPostgresCache returns a domain.Cache shared by all instances using the same database.
func NewPostgresCache(pgx *pgxpool.Pool, opts ...PostgresCacheOpt) *PostgresCache {
	repo := &PostgresCache{
		db:  pgx,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(repo)
	}

	return repo
}

type PostgresCache struct {
	db  *pgxpool.Pool
	now func() time.Time
}

var _ domain.Cache = (*PostgresCache)(nil)

type visitorCountry struct {
	IP        string    `db:"ip"`
	Country   string    `db:"country"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

func (repo *PostgresCache) Get(ctx context.Context, ip string) (domain.CountryCode, error) {
	sql, args, err := psql.Select("ip", "country", "created_at", "expires_at").
		From(visitorCountryTable).
		Where(squirrel.Eq{"ip": ip}).
		Where(squirrel.Gt{"expires_at": repo.now()}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("%w: could not build query: %v", ErrInvalidQuery, err)
	}

	var entry visitorCountry

	err = pgxscan.Get(ctx, repo.db, &entry, sql, args...)
	if pgxscan.NotFound(err) {
		return "", domain.ErrCacheMiss
	}

	if err != nil {
		return "", fmt.Errorf("%w: could not get country: %v", ErrQueryFailed, err)
	}

	return domain.CountryCode(entry.Country), nil
}

func (repo *PostgresCache) Put(ctx context.Context, entry domain.VisitorCountry) error {
	sql, args, err := psql.Insert(visitorCountryTable).
		Columns("ip", "country", "created_at", "expires_at").
		Values(entry.IP, entry.Country.String(), entry.CreatedAt, entry.ExpiresAt).
		Suffix(`ON CONFLICT (ip) DO UPDATE SET
			country = EXCLUDED.country,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: could not build query: %v", ErrInvalidQuery, err)
	}

	if _, err = repo.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%w: could not put country: %v", ErrQueryFailed, err)
	}

	return nil
}

func (repo *PostgresCache) Clear(ctx context.Context) (int, error) {
	return repo.delete(ctx, psql.Delete(visitorCountryTable))
}

func (repo *PostgresCache) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return repo.delete(ctx, psql.Delete(visitorCountryTable).Where(squirrel.LtOrEq{"expires_at": now}))
}

func (repo *PostgresCache) delete(ctx context.Context, query squirrel.DeleteBuilder) (int, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: could not build query: %v", ErrInvalidQuery, err)
	}

	tag, err := repo.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: could not delete: %v", ErrQueryFailed, err)
	}

	return int(tag.RowsAffected()), nil
}

func (repo *PostgresCache) Count(ctx context.Context) (int, error) {
	sql, args, err := psql.Select("COUNT(*)").From(visitorCountryTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: could not build query: %v", ErrInvalidQuery, err)
	}

	var n int

	if err := pgxscan.Get(ctx, repo.db, &n, sql, args...); err != nil {
		return 0, fmt.Errorf("%w: could not count: %v", ErrQueryFailed, err)
	}

	return n, nil
}
