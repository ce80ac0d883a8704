package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/archive/mock"
	"github.com/pennyfx/penny/cache"
	"github.com/pennyfx/penny/convert"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/money"
	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/resolver"
	"github.com/pennyfx/penny/source"
)

var testObservedAt = time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()

	return &Server{
		logger:          noopLogger,
		metrics:         NewMetrics(),
		defaultStrategy: resolver.StrategyAuto,
	}
}

func testRecord(base, quote currency.Code, value string) *rate.Record {
	return &rate.Record{
		Base:       base,
		Quote:      quote,
		Rate:       decimal.RequireFromString(value),
		ObservedAt: testObservedAt,
		Origin:     rate.OriginLive,
	}
}

func withRouteParams(t *testing.T, req *http.Request, params map[string]string) *http.Request {
	t.Helper()

	rctx := chi.NewRouteContext()

	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func pairRequest(t *testing.T, url, base, quote string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, url, http.NoBody)

	return withRouteParams(t, req, map[string]string{
		"base":  base,
		"quote": quote,
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp ErrorResponse

	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	return resp.Error
}

func TestHandlers_RateForPair(t *testing.T) {
	t.Parallel()

	t.Run("invalid base", func(t *testing.T) {
		t.Parallel()

		var called bool

		s := testServer(t)
		s.resolver = &mockResolver{
			resolveFn: func(
				_ context.Context,
				_ currency.Code,
				_ currency.Code,
				_ resolver.Strategy,
			) (*rate.Record, error) {
				called = true

				return nil, nil
			},
		}

		w := httptest.NewRecorder()
		s.RateForPair(w, pairRequest(t, "/v1/rates/US/EGP", "US", "EGP"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
	})

	t.Run("invalid strategy", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.resolver = &mockResolver{}

		req := pairRequest(t, "/v1/rates/USD/EGP?strategy=nope", "USD", "EGP")

		w := httptest.NewRecorder()
		s.RateForPair(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no cached rate", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.resolver = &mockResolver{
			resolveFn: func(
				_ context.Context,
				_ currency.Code,
				_ currency.Code,
				_ resolver.Strategy,
			) (*rate.Record, error) {
				return nil, cache.ErrNoCachedRate
			},
		}

		w := httptest.NewRecorder()
		s.RateForPair(w, pairRequest(t, "/v1/rates/USD/EGP?strategy=cached", "USD", "EGP"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rate unavailable", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.resolver = &mockResolver{
			resolveFn: func(
				_ context.Context,
				_ currency.Code,
				_ currency.Code,
				_ resolver.Strategy,
			) (*rate.Record, error) {
				return nil, source.ErrRateUnavailable
			},
		}

		w := httptest.NewRecorder()
		s.RateForPair(w, pairRequest(t, "/v1/rates/USD/EGP", "USD", "EGP"))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("unusable cache", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.resolver = &mockResolver{
			resolveFn: func(
				_ context.Context,
				_ currency.Code,
				_ currency.Code,
				_ resolver.Strategy,
			) (*rate.Record, error) {
				return nil, cache.ErrDecryptionFailed
			},
		}

		w := httptest.NewRecorder()
		s.RateForPair(w, pairRequest(t, "/v1/rates/USD/EGP?strategy=cached", "USD", "EGP"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, errCacheUnusable.Error(), decodeError(t, w))
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var seenStrategy resolver.Strategy

		s := testServer(t)
		s.resolver = &mockResolver{
			resolveFn: func(
				_ context.Context,
				base currency.Code,
				quote currency.Code,
				strategy resolver.Strategy,
			) (*rate.Record, error) {
				seenStrategy = strategy

				return testRecord(base, quote, "47.57"), nil
			},
		}

		w := httptest.NewRecorder()
		s.RateForPair(w, pairRequest(t, "/v1/rates/USD/EGP?strategy=live", "USD", "EGP"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, resolver.StrategyLive, seenStrategy)

		var resp RateResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "USD", resp.Base)
		assert.Equal(t, "EGP", resp.Quote)
		assert.Equal(t, "47.57", resp.Rate)
		assert.Equal(t, "LIVE", resp.Origin)
	})

	t.Run("default strategy is auto", func(t *testing.T) {
		t.Parallel()

		var seenStrategy resolver.Strategy

		s := testServer(t)
		s.resolver = &mockResolver{
			resolveFn: func(
				_ context.Context,
				base currency.Code,
				quote currency.Code,
				strategy resolver.Strategy,
			) (*rate.Record, error) {
				seenStrategy = strategy

				return testRecord(base, quote, "47.57"), nil
			},
		}

		w := httptest.NewRecorder()
		s.RateForPair(w, pairRequest(t, "/v1/rates/USD/EGP", "USD", "EGP"))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, resolver.StrategyAuto, seenStrategy)
	})
}

func TestHandlers_Convert(t *testing.T) {
	t.Parallel()

	convertRequest := func(t *testing.T, body string) *http.Request {
		t.Helper()

		return httptest.NewRequest(
			http.MethodPost,
			"/v1/convert",
			strings.NewReader(body),
		)
	}

	t.Run("invalid body", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.converter = &mockConverter{}

		w := httptest.NewRecorder()
		s.Convert(w, convertRequest(t, "{"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid amount", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.converter = &mockConverter{}

		body := `{"amount":"abc","from":"USD","to":"EGP"}`

		w := httptest.NewRecorder()
		s.Convert(w, convertRequest(t, body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("currency not allowed", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.converter = &mockConverter{
			convertFn: func(
				_ context.Context,
				_ money.Money,
				_ currency.Code,
				_ resolver.Strategy,
			) (*convert.Result, error) {
				return nil, currency.ErrNotAllowed
			},
		}

		body := `{"amount":"100","from":"USD","to":"EGP"}`

		w := httptest.NewRecorder()
		s.Convert(w, convertRequest(t, body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.converter = &mockConverter{
			convertFn: func(
				_ context.Context,
				m money.Money,
				target currency.Code,
				strategy resolver.Strategy,
			) (*convert.Result, error) {
				require.Equal(t, resolver.StrategyLive, strategy)

				converted, err := money.New(
					m.Amount().Mul(decimal.RequireFromString("47.57")),
					target,
				)
				require.NoError(t, err)

				return &convert.Result{
					Money: converted,
					Rate:  testRecord(m.Currency(), target, "47.57"),
				}, nil
			},
		}

		body := `{"amount":"100.00","from":"USD","to":"EGP","strategy":"live"}`

		w := httptest.NewRecorder()
		s.Convert(w, convertRequest(t, body))

		require.Equal(t, http.StatusOK, w.Code)

		var resp ConvertResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "4757", resp.Amount)
		assert.Equal(t, "EGP", resp.Currency)
		assert.Equal(t, "4,757.00 EGP", resp.Formatted)

		require.NotNil(t, resp.Rate)
		assert.Equal(t, "47.57", resp.Rate.Rate)
	})
}

func TestHandlers_Currencies(t *testing.T) {
	t.Parallel()

	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/currencies", http.NoBody)
	w := httptest.NewRecorder()

	s.Currencies(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp CurrenciesResponse

	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, currency.All(), resp.Results)
}

func TestHandlers_History(t *testing.T) {
	t.Parallel()

	t.Run("invalid time range", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.archive = &mock.Archive{}

		url := "/v1/history/USD/EGP?from=2026-08-20T00:00:00Z&to=2026-08-10T00:00:00Z"

		w := httptest.NewRecorder()
		s.History(w, pairRequest(t, url, "USD", "EGP"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("archive error", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.archive = &mock.Archive{
			HistoryFn: func(
				_ context.Context,
				_ *archive.HistoryQuery,
			) (*archive.Page[*rate.Record], error) {
				return nil, errors.New("boom")
			},
		}

		w := httptest.NewRecorder()
		s.History(w, pairRequest(t, "/v1/history/USD/EGP", "USD", "EGP"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var capturedQuery *archive.HistoryQuery

		s := testServer(t)
		s.archive = &mock.Archive{
			HistoryFn: func(
				_ context.Context,
				query *archive.HistoryQuery,
			) (*archive.Page[*rate.Record], error) {
				capturedQuery = query

				return &archive.Page[*rate.Record]{
					Results: []*rate.Record{testRecord("USD", "EGP", "47.57")},
					Total:   1,
				}, nil
			},
		}

		url := "/v1/history/USD/EGP?from=2026-08-10T00:00:00Z" +
			"&to=2026-08-23T00:00:00Z&limit=200&offset=2"

		w := httptest.NewRecorder()
		s.History(w, pairRequest(t, url, "USD", "EGP"))

		require.Equal(t, http.StatusOK, w.Code)

		var page archive.Page[*rate.Record]

		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		require.Len(t, page.Results, 1)
		assert.Equal(t, int64(1), page.Total)

		require.NotNil(t, capturedQuery)
		assert.Equal(t, currency.Code("USD"), capturedQuery.Base)
		assert.Equal(t, currency.Code("EGP"), capturedQuery.Quote)
		assert.Equal(t, int32(200), capturedQuery.Limit)
		assert.Equal(t, int64(2), capturedQuery.Offset)
	})
}

func TestHandlers_Cache(t *testing.T) {
	t.Parallel()

	t.Run("stats", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.cache = &mockCache{
			recordCountFn: func(_ context.Context) (int, error) {
				return 12, nil
			},
			pairCountFn: func(_ context.Context) (int, error) {
				return 3, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats", http.NoBody)
		w := httptest.NewRecorder()

		s.CacheStats(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp CacheStatsResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 12, resp.Records)
		assert.Equal(t, 3, resp.Pairs)
	})

	t.Run("stats on unusable cache", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.cache = &mockCache{
			recordCountFn: func(_ context.Context) (int, error) {
				return 0, cache.ErrDecryptionFailed
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/cache/stats", http.NoBody)
		w := httptest.NewRecorder()

		s.CacheStats(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, errCacheUnusable.Error(), decodeError(t, w))
	})

	t.Run("prune", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.cache = &mockCache{
			pruneFn: func(_ context.Context, _ time.Time) (int, error) {
				return 4, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/v1/cache/prune", http.NoBody)
		w := httptest.NewRecorder()

		s.CachePrune(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp PruneResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 4, resp.Evicted)
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		var cleared bool

		s := testServer(t)
		s.cache = &mockCache{
			clearFn: func(_ context.Context) error {
				cleared = true

				return nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/v1/cache/clear", http.NoBody)
		w := httptest.NewRecorder()

		s.CacheClear(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.True(t, cleared)
	})
}

func TestUtils_ParseStrategy(t *testing.T) {
	t.Parallel()

	t.Run("default", func(t *testing.T) {
		t.Parallel()

		strategy, err := testServer(t).parseStrategy("")

		require.NoError(t, err)
		assert.Equal(t, resolver.StrategyAuto, strategy)
	})

	t.Run("configured default", func(t *testing.T) {
		t.Parallel()

		s := testServer(t)
		s.defaultStrategy = resolver.StrategyCached

		strategy, err := s.parseStrategy("")

		require.NoError(t, err)
		assert.Equal(t, resolver.StrategyCached, strategy)
	})

	t.Run("case insensitive", func(t *testing.T) {
		t.Parallel()

		strategy, err := testServer(t).parseStrategy("LIVE")

		require.NoError(t, err)
		assert.Equal(t, resolver.StrategyLive, strategy)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := testServer(t).parseStrategy("nope")

		assert.ErrorIs(t, err, resolver.ErrInvalidStrategy)
	})
}

func TestUtils_ParseLimitOffset(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		limit, offset, err := parseLimitOffset("", "")

		require.NoError(t, err)
		assert.Equal(t, archive.DefaultLimit, limit)
		assert.Equal(t, int64(0), offset)
	})

	t.Run("clamps limit", func(t *testing.T) {
		t.Parallel()

		limit, offset, err := parseLimitOffset("999", "5")

		require.NoError(t, err)
		assert.Equal(t, archive.MaxLimit, limit)
		assert.Equal(t, int64(5), offset)
	})

	t.Run("invalid limit", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseLimitOffset("nope", "0")

		assert.ErrorIs(t, err, errInvalidLimit)
	})

	t.Run("invalid offset", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseLimitOffset("10", "nope")

		assert.ErrorIs(t, err, errInvalidOffset)
	})
}

func TestUtils_ParseTimeRange(t *testing.T) {
	t.Parallel()

	t.Run("open range", func(t *testing.T) {
		t.Parallel()

		from, to, err := parseTimeRange("", "")

		require.NoError(t, err)
		assert.True(t, from.IsZero())
		assert.True(t, to.IsZero())
	})

	t.Run("valid range", func(t *testing.T) {
		t.Parallel()

		from, to, err := parseTimeRange(
			"2026-08-10T00:00:00Z",
			"2026-08-23T00:00:00Z",
		)

		require.NoError(t, err)
		assert.True(t, from.Before(to))
	})

	t.Run("inverted range", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseTimeRange(
			"2026-08-23T00:00:00Z",
			"2026-08-10T00:00:00Z",
		)

		assert.ErrorIs(t, err, errInvalidTimeRange)
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseTimeRange("nope", "")

		assert.ErrorIs(t, err, errInvalidTimeRange)
	})
}
