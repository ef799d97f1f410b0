package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tibialabs/tibia-houses/internal/houses"
	"github.com/tibialabs/tibia-houses/internal/observability"
	"github.com/tibialabs/tibia-houses/internal/tibia"
	"github.com/tibialabs/tibia-houses/internal/towns"
)

// Concurrent upstream fetches per request. tibia.com rate limits
// aggressively; three in flight matches what the site tolerates.
const fetchConcurrency = 3

func (s *Server) handleTowns(w http.ResponseWriter, r *http.Request) {
	names, err := s.townList(r.Context())
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, names)
}

func (s *Server) handleResidences(w http.ResponseWriter, r *http.Request) {
	world := chi.URLParam(r, "world")
	q := r.URL.Query()

	kinds := []houses.HouseType{houses.TypeHouse, houses.TypeGuildhall}
	if raw := q.Get("type"); raw != "" {
		kind, ok := houses.ParseHouseType(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, "INVALID_TYPE", fmt.Sprintf("unknown residence type %q", raw))
			return
		}
		kinds = []houses.HouseType{kind}
	}

	townNames := q["town"]
	if len(townNames) == 0 {
		var err error
		townNames, err = s.townList(r.Context())
		if err != nil {
			respondPipelineError(w, err)
			return
		}
	}

	type combo struct {
		town string
		kind houses.HouseType
	}
	combos := make([]combo, 0, len(townNames)*len(kinds))
	for _, t := range townNames {
		for _, k := range kinds {
			combos = append(combos, combo{town: t, kind: k})
		}
	}

	results := make([]*houses.ExtractionResult, len(combos))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(fetchConcurrency)
	for i, c := range combos {
		g.Go(func() error {
			res, err := s.extractResidences(ctx, world, c.town, c.kind)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		respondPipelineError(w, err)
		return
	}

	merged := houses.ExtractionResult{
		Residences: []houses.House{},
		Failures:   []houses.RowFailure{},
	}
	for _, res := range results {
		merged.Residences = append(merged.Residences, res.Residences...)
		merged.Failures = append(merged.Failures, res.Failures...)
	}
	respondJSON(w, http.StatusOK, merged)
}

func (s *Server) handleDriftEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	events, err := s.store.RecentDriftEvents(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": events,
		"limit": limit,
	})
}

// extractResidences runs the whole pipeline for one (world, town, type)
// combination, going through the result cache.
func (s *Server) extractResidences(ctx context.Context, world, town string, kind houses.HouseType) (*houses.ExtractionResult, error) {
	key := world + "|" + town + "|" + string(kind)
	if cached, ok := s.results.Get(key); ok {
		return cached, nil
	}

	start := time.Now()
	body, err := s.client.ResidencesPage(ctx, world, town, kind.QueryValue())
	s.metrics.IncPage("residences")
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		s.recordPageError(ctx, world, town, err, nil)
		return nil, err
	}

	page, err := tibia.NewPage(body)
	if err != nil {
		s.recordPageError(ctx, world, town, err, body)
		return nil, err
	}

	result, err := houses.ExtractResidences(page, world, town, kind, s.now())
	if err != nil {
		s.recordPageError(ctx, world, town, err, body)
		return nil, err
	}

	s.metrics.AddResidences(len(result.Residences))
	for _, f := range result.Failures {
		s.metrics.IncRowFailure(f.Field)
		slog.Warn("residence row dropped",
			"world", world, "town", town, "type", kind,
			"row", f.Row, "field", f.Field, "reason", f.Reason)
	}

	s.results.Set(key, result)
	return result, nil
}

func (s *Server) townList(ctx context.Context) ([]string, error) {
	const key = "towns"
	if cached, ok := s.towns.Get(key); ok {
		return cached, nil
	}

	start := time.Now()
	body, err := s.client.TownsPage(ctx)
	s.metrics.IncPage("towns")
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		s.recordPageError(ctx, "", "", err, nil)
		return nil, err
	}

	page, err := tibia.NewPage(body)
	if err != nil {
		s.recordPageError(ctx, "", "", err, body)
		return nil, err
	}

	names, err := towns.Extract(page)
	if err != nil {
		s.recordPageError(ctx, "", "", err, body)
		return nil, err
	}

	s.towns.Set(key, names)
	return names, nil
}

func (s *Server) recordPageError(ctx context.Context, world, town string, err error, body []byte) {
	kind := observability.ClassifyPageError(err)
	s.metrics.IncPageError(kind)
	if !observability.IsDrift(err) {
		return
	}
	slog.Error("upstream markup drift detected",
		"world", world, "town", town, "kind", kind, "error", err)
	if storeErr := s.store.RecordDriftEvent(ctx, world, town, kind, err.Error(), body); storeErr != nil {
		slog.Error("failed to record drift event", "error", storeErr)
	}
}
