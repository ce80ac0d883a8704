package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

type Archive struct {
	pool *pgxpool.Pool
}

func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{
		pool: pool,
	}
}

func (a *Archive) SaveRate(ctx context.Context, rec *rate.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	// The rate travels as exact decimal text and lands in a NUMERIC
	// column, so no precision is lost in either direction
	_, err := a.pool.Exec(
		ctx,
		`INSERT INTO rates (base, quote, rate, origin, observed_at)
		 VALUES ($1, $2, $3::numeric, $4, $5)
		 ON CONFLICT (base, quote, observed_at) DO UPDATE
		 SET rate = EXCLUDED.rate, origin = EXCLUDED.origin`,
		rec.Base.String(),
		rec.Quote.String(),
		rec.Rate.String(),
		string(rec.Origin),
		rec.ObservedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("unable to save rate: %w", err)
	}

	return nil
}

func (a *Archive) LatestRate(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	row := a.pool.QueryRow(
		ctx,
		`SELECT base, quote, rate::text, origin, observed_at
		 FROM rates
		 WHERE base = $1 AND quote = $2
		 ORDER BY observed_at DESC
		 LIMIT 1`,
		base.String(),
		quote.String(),
	)

	rec, err := scanRate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // valid case
		}

		return nil, fmt.Errorf("unable to fetch rate: %w", err)
	}

	return rec, nil
}

func (a *Archive) History(
	ctx context.Context,
	query *archive.HistoryQuery,
) (*archive.Page[*rate.Record], error) {
	var (
		from = query.From
		to   = query.To
	)

	if to.IsZero() {
		to = time.Now().UTC()
	}

	var total int64

	err := a.pool.QueryRow(
		ctx,
		`SELECT COUNT(*)
		 FROM rates
		 WHERE base = $1 AND quote = $2
		   AND observed_at >= $3 AND observed_at <= $4`,
		query.Base.String(),
		query.Quote.String(),
		from.UTC(),
		to.UTC(),
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("unable to count rates: %w", err)
	}

	if total == 0 {
		return &archive.Page[*rate.Record]{
			Results: nil,
			Total:   0,
		}, nil
	}

	rows, err := a.pool.Query(
		ctx,
		`SELECT base, quote, rate::text, origin, observed_at
		 FROM rates
		 WHERE base = $1 AND quote = $2
		   AND observed_at >= $3 AND observed_at <= $4
		 ORDER BY observed_at DESC
		 LIMIT $5 OFFSET $6`,
		query.Base.String(),
		query.Quote.String(),
		from.UTC(),
		to.UTC(),
		archive.ClampLimit(query.Limit),
		query.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}
	defer rows.Close()

	items := make([]*rate.Record, 0)

	for rows.Next() {
		rec, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan rate: %w", err)
		}

		items = append(items, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read rates: %w", err)
	}

	return &archive.Page[*rate.Record]{
		Results: items,
		Total:   total,
	}, nil
}

func (a *Archive) ListPairs(ctx context.Context) ([]rate.Pair, error) {
	rows, err := a.pool.Query(
		ctx,
		`SELECT DISTINCT base, quote
		 FROM rates
		 ORDER BY base, quote`,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch pairs: %w", err)
	}
	defer rows.Close()

	out := make([]rate.Pair, 0)

	for rows.Next() {
		var base, quote string

		if err := rows.Scan(&base, &quote); err != nil {
			return nil, fmt.Errorf("unable to scan pair: %w", err)
		}

		out = append(out, rate.Pair{
			Base:  currency.Code(base),
			Quote: currency.Code(quote),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read pairs: %w", err)
	}

	return out, nil
}

// scanRate parses a single rates row into the common Go type
func scanRate(row pgx.Row) (*rate.Record, error) {
	var (
		base, quote, rateText, origin string
		observedAt                    time.Time
	)

	if err := row.Scan(&base, &quote, &rateText, &origin, &observedAt); err != nil {
		return nil, err
	}

	value, err := decimal.NewFromString(rateText)
	if err != nil {
		return nil, fmt.Errorf("unable to parse rate value: %w", err)
	}

	return &rate.Record{
		Base:       currency.Code(base),
		Quote:      currency.Code(quote),
		Rate:       value,
		ObservedAt: observedAt.UTC(),
		Origin:     rate.Origin(origin),
	}, nil
}
