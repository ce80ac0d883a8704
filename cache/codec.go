package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

const (
	storeVersion = 1
	dateLayout   = "2006-01-02"
)

// storeFile is the plaintext on-disk layout of the full cache store.
// Rates round-trip as exact decimal text, never binary floats
type storeFile struct {
	Version int                       `json:"version"`
	Pairs   map[string][]storedRecord `json:"pairs"`
}

type storedRecord struct {
	Base       string `json:"base"`
	Quote      string `json:"quote"`
	Rate       string `json:"rate"`
	ObservedAt string `json:"observed_at"`
	Origin     string `json:"origin"`
}

// encodeStore serializes the full pair → history mapping
func encodeStore(store map[rate.Pair][]*rate.Record) ([]byte, error) {
	out := storeFile{
		Version: storeVersion,
		Pairs:   make(map[string][]storedRecord, len(store)),
	}

	for pair, history := range store {
		records := make([]storedRecord, 0, len(history))

		for _, rec := range history {
			records = append(records, storedRecord{
				Base:       rec.Base.String(),
				Quote:      rec.Quote.String(),
				Rate:       rec.Rate.String(),
				ObservedAt: rec.ObservedAt.Format(dateLayout),
				Origin:     rec.Origin.String(),
			})
		}

		out.Pairs[pair.String()] = records
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("unable to encode store: %w", err)
	}

	return data, nil
}

// decodeStore deserializes the full pair → history mapping
func decodeStore(data []byte) (map[rate.Pair][]*rate.Record, error) {
	var in storeFile

	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unable to decode store: %w", err)
	}

	store := make(map[rate.Pair][]*rate.Record, len(in.Pairs))

	for _, records := range in.Pairs {
		for _, sr := range records {
			rec, err := parseStoredRecord(sr)
			if err != nil {
				return nil, err
			}

			store[rec.Pair()] = append(store[rec.Pair()], rec)
		}
	}

	return store, nil
}

func parseStoredRecord(sr storedRecord) (*rate.Record, error) {
	value, err := decimal.NewFromString(sr.Rate)
	if err != nil {
		return nil, fmt.Errorf("unable to parse stored rate %q: %w", sr.Rate, err)
	}

	observedAt, err := time.Parse(dateLayout, sr.ObservedAt)
	if err != nil {
		return nil, fmt.Errorf(
			"unable to parse stored date %q: %w",
			sr.ObservedAt,
			err,
		)
	}

	return &rate.Record{
		Base:       currency.Code(sr.Base),
		Quote:      currency.Code(sr.Quote),
		Rate:       value,
		ObservedAt: observedAt.UTC(),
		Origin:     rate.Origin(sr.Origin),
	}, nil
}
