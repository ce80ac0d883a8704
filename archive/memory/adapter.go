package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

type key struct {
	base, quote string
	observedAt  int64 // unix nanos
}

type Archive struct {
	data map[key]rate.Record

	mu sync.RWMutex
}

func NewArchive() *Archive {
	return &Archive{
		data: make(map[key]rate.Record),
	}
}

func (a *Archive) SaveRate(_ context.Context, rec *rate.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	k := key{
		base:       rec.Base.String(),
		quote:      rec.Quote.String(),
		observedAt: rec.ObservedAt.UTC().UnixNano(),
	}

	elem := *rec
	elem.ObservedAt = elem.ObservedAt.UTC()

	a.mu.Lock()
	a.data[k] = elem // key is unique
	a.mu.Unlock()

	return nil
}

func (a *Archive) LatestRate(
	_ context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var best *rate.Record

	for _, v := range a.data {
		if v.Base != base || v.Quote != quote {
			continue
		}

		if best == nil || v.ObservedAt.After(best.ObservedAt) {
			cp := v
			best = &cp
		}
	}

	return best, nil
}

func (a *Archive) History(
	_ context.Context,
	query *archive.HistoryQuery,
) (*archive.Page[*rate.Record], error) {
	a.mu.RLock()

	out := make([]*rate.Record, 0)

	for _, v := range a.data {
		if v.Base != query.Base || v.Quote != query.Quote {
			continue
		}

		if !query.From.IsZero() && v.ObservedAt.Before(query.From) {
			continue
		}

		if !query.To.IsZero() && v.ObservedAt.After(query.To) {
			continue
		}

		cp := v
		out = append(out, &cp)
	}

	a.mu.RUnlock()

	// Newest first
	sort.Slice(out, func(i, j int) bool {
		return out[i].ObservedAt.After(out[j].ObservedAt)
	})

	total := int64(len(out))
	if total == 0 {
		return &archive.Page[*rate.Record]{
			Results: nil,
			Total:   0,
		}, nil
	}

	lim := archive.ClampLimit(query.Limit)

	off := query.Offset
	if off > total {
		return &archive.Page[*rate.Record]{
			Results: nil,
			Total:   total,
		}, nil
	}

	start := int(off)

	end := start + int(lim)
	if end > len(out) {
		end = len(out)
	}

	return &archive.Page[*rate.Record]{
		Results: out[start:end],
		Total:   total,
	}, nil
}

func (a *Archive) ListPairs(_ context.Context) ([]rate.Pair, error) {
	a.mu.RLock()

	seen := make(map[rate.Pair]struct{})

	for _, v := range a.data {
		seen[rate.Pair{Base: v.Base, Quote: v.Quote}] = struct{}{}
	}

	a.mu.RUnlock()

	out := make([]rate.Pair, 0, len(seen))

	for p := range seen {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}
