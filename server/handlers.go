package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pennyfx/penny/archive"
	"github.com/pennyfx/penny/cache"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/money"
	"github.com/pennyfx/penny/resolver"
	"github.com/pennyfx/penny/source"
)

var (
	errInternal         = errors.New("internal server error")
	errCacheUnusable    = errors.New("cache unusable")
	errInvalidBody      = errors.New("invalid request body")
	errInvalidTimeRange = errors.New("invalid time range (must be RFC3339 UTC)")

	errInvalidLimit  = errors.New("invalid limit")
	errInvalidOffset = errors.New("invalid offset")
)

func (s *Server) RateForPair(w http.ResponseWriter, r *http.Request) {
	// Parse the pair
	base, quote, err := parsePair(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the strategy
	strategy, err := s.parseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	rec, err := s.resolver.Resolve(r.Context(), base, quote, strategy)

	s.metrics.observeLookup(strategy.String(), err)

	if err != nil {
		s.writeDomainError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, newRateResponse(rec))
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)

		return
	}

	// Parse the order
	m, err := money.Parse(req.Amount, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	target, err := currency.Parse(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	strategy, err := s.parseStrategy(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	result, err := s.converter.Convert(r.Context(), m, target, strategy)

	s.metrics.observeConversion(strategy.String(), err)

	if err != nil {
		s.writeDomainError(w, err)

		return
	}

	resp := &ConvertResponse{
		Amount:    result.Money.Amount().String(),
		Currency:  result.Money.Currency().String(),
		Formatted: result.Money.Format(),
		Rate:      newRateResponse(result.Rate),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Currencies(w http.ResponseWriter, _ *http.Request) {
	resp := &CurrenciesResponse{
		Results: currency.All(),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	// Parse the pair
	base, quote, err := parsePair(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the time range (optional)
	from, to, err := parseTimeRange(
		r.URL.Query().Get("from"),
		r.URL.Query().Get("to"),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the pagination settings
	limit, offset, err := parseLimitOffset(
		r.URL.Query().Get("limit"),
		r.URL.Query().Get("offset"),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	page, err := s.archive.History(r.Context(), &archive.HistoryQuery{
		Base:   base,
		Quote:  quote,
		From:   from,
		To:     to,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Debug(
			"unable to fetch history",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errInternal)

		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) Pairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := s.archive.ListPairs(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch pairs",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errInternal)

		return
	}

	results := make([]string, 0, len(pairs))
	for _, p := range pairs {
		results = append(results, p.String())
	}

	writeJSON(w, http.StatusOK, &PairsResponse{Results: results})
}

func (s *Server) CacheStats(w http.ResponseWriter, r *http.Request) {
	records, err := s.cache.RecordCount(r.Context())
	if err != nil {
		s.writeDomainError(w, err)

		return
	}

	pairs, err := s.cache.PairCount(r.Context())
	if err != nil {
		s.writeDomainError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &CacheStatsResponse{
		Records: records,
		Pairs:   pairs,
	})
}

func (s *Server) CachePrune(w http.ResponseWriter, r *http.Request) {
	evicted, err := s.cache.Prune(r.Context(), time.Now().UTC())
	if err != nil {
		s.writeDomainError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &PruneResponse{Evicted: evicted})
}

func (s *Server) CacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		s.writeDomainError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeDomainError maps a resolution / conversion error to the
// appropriate HTTP status
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, currency.ErrInvalidCode),
		errors.Is(err, currency.ErrUnknownCurrency),
		errors.Is(err, currency.ErrNotAllowed),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, resolver.ErrInvalidStrategy):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, cache.ErrNoCachedRate):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, source.ErrRateUnavailable):
		writeError(w, http.StatusBadGateway, source.ErrRateUnavailable)
	case errors.Is(err, cache.ErrDecryptionFailed):
		// The stored details stay out of the response
		writeError(w, http.StatusInternalServerError, errCacheUnusable)
	default:
		s.logger.Debug(
			"unexpected handler error",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errInternal)
	}
}

func parsePair(r *http.Request) (currency.Code, currency.Code, error) {
	base, err := currency.Parse(chi.URLParam(r, "base"))
	if err != nil {
		return "", "", err
	}

	quote, err := currency.Parse(chi.URLParam(r, "quote"))
	if err != nil {
		return "", "", err
	}

	return base, quote, nil
}

func (s *Server) parseStrategy(raw string) (resolver.Strategy, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return s.defaultStrategy, nil
	}

	return resolver.ParseStrategy(strings.ToLower(v))
}

func parseTimeRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	var from, to time.Time

	if v := strings.TrimSpace(fromRaw); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTimeRange
		}

		from = t.UTC()
	}

	if v := strings.TrimSpace(toRaw); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidTimeRange
		}

		to = t.UTC()
	}

	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, errInvalidTimeRange
	}

	return from, to, nil
}

func parseLimitOffset(limitRaw, offsetRaw string) (int32, int64, error) {
	limit := archive.DefaultLimit

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, errInvalidLimit
		}

		limit = int32(n) //nolint:gosec // Fine to clamp
	}

	limit = archive.ClampLimit(limit)

	var offset int64

	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, errInvalidOffset
		}

		offset = n
	}

	return limit, offset, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
