package search

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"jobradar.fyi/jobradar/internal/db"
	"jobradar.fyi/jobradar/internal/embedding"
	"jobradar.fyi/jobradar/internal/ranking"
)

type fakeSearchStore struct {
	rows        []db.SearchRow
	probeCount  int
	facets      []db.FacetRow
	embeddings  map[int64]string
	simpleCalls int
	branchCalls int
	facetErr    error
}

func makeRows(n int) []db.SearchRow {
	rows := make([]db.SearchRow, n)
	for i := range rows {
		rows[i] = db.SearchRow{
			PostingID: int64(i + 1),
			Title:     fmt.Sprintf("Software Engineer %d", i+1),
		}
	}
	return rows
}

func pageOf(rows []db.SearchRow, limit, offset int) []db.SearchRow {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func (f *fakeSearchStore) ProbeTextSelectivity(context.Context, string, db.PostingFilter, int) (int, error) {
	return f.probeCount, nil
}

func (f *fakeSearchStore) SearchPostingsBranchUnion(_ context.Context, _ string, _ db.PostingFilter, _, limit, offset int) ([]db.SearchRow, error) {
	f.branchCalls++
	return pageOf(f.rows, limit, offset), nil
}

func (f *fakeSearchStore) SearchPostingsSimple(_ context.Context, _ string, _ db.PostingFilter, limit, offset int) ([]db.SearchRow, error) {
	f.simpleCalls++
	return pageOf(f.rows, limit, offset), nil
}

func (f *fakeSearchStore) ListPostingsFiltered(_ context.Context, _ db.PostingFilter, limit, offset int) ([]db.SearchRow, error) {
	return pageOf(f.rows, limit, offset), nil
}

func (f *fakeSearchStore) CountPostingsFiltered(context.Context, db.PostingFilter) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeSearchStore) QueryFacetSample(context.Context, db.PostingFilter, int, int) ([]db.FacetRow, error) {
	if f.facetErr != nil {
		return nil, f.facetErr
	}
	return f.facets, nil
}

func (f *fakeSearchStore) LatestEmbeddingsForPostings(_ context.Context, ids []int64, _ string) (map[int64]string, error) {
	result := make(map[int64]string)
	for _, id := range ids {
		if literal, ok := f.embeddings[id]; ok {
			result[id] = literal
		}
	}
	return result, nil
}

type fixedProvider struct {
	vector []float64
}

func (f fixedProvider) Embed(context.Context, string) ([]float64, error) {
	return f.vector, nil
}

func (f fixedProvider) ModelName() string { return "fixed" }

func (f fixedProvider) Dimensions() int { return len(f.vector) }

func newTestService(store *fakeSearchStore, provider embedding.Provider) *Service {
	logger := zerolog.Nop()
	planner := NewPlanner(store, logger)
	scorer := NewScorer(store, provider, logger)
	return NewService(planner, scorer, ranking.HeuristicRanker{}, logger)
}

func TestSearchPaginationHasMore(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{rows: makeRows(25), probeCount: 3}
	service := newTestService(store, embedding.Disabled{})

	envelope, err := service.Search(context.Background(), Request{Query: "engineer", Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(envelope.Results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(envelope.Results))
	}
	if !envelope.HasMore {
		t.Fatalf("25 matching rows at limit 20 must report has_more")
	}
	if envelope.TotalIsExact {
		t.Fatalf("text query totals are lower bounds, not exact")
	}
	if envelope.Total != 21 {
		t.Fatalf("expected lower-bound total 21, got %d", envelope.Total)
	}
	if envelope.RankerUsed != ranking.StrategyHeuristic {
		t.Fatalf("envelope must report the strategy that ordered the page, got %q", envelope.RankerUsed)
	}
}

func TestSearchPaginationExhausted(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{rows: makeRows(15), probeCount: 3}
	service := newTestService(store, embedding.Disabled{})

	envelope, err := service.Search(context.Background(), Request{Query: "engineer", Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(envelope.Results) != 15 || envelope.HasMore {
		t.Fatalf("15 rows at limit 20 must return all rows without has_more: %d %v",
			len(envelope.Results), envelope.HasMore)
	}
	if envelope.Total != 15 {
		t.Fatalf("expected total 15, got %d", envelope.Total)
	}
}

func TestPlannerSwitchesPlanOnBroadProbe(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{rows: makeRows(5), probeCount: probeLimit}
	planner := NewPlanner(store, zerolog.Nop())

	if _, err := planner.FetchPage(context.Background(), Request{Query: "the", Limit: 20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.simpleCalls != 1 || store.branchCalls != 0 {
		t.Fatalf("a full probe page must select the simple plan: simple=%d branch=%d",
			store.simpleCalls, store.branchCalls)
	}

	store.probeCount = 2
	if _, err := planner.FetchPage(context.Background(), Request{Query: "kubernetes", Limit: 20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.branchCalls != 1 {
		t.Fatalf("a selective probe must select the branch union plan")
	}
}

func TestFilterOnlySearchReportsExactTotal(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{rows: makeRows(30)}
	service := newTestService(store, embedding.Disabled{})

	envelope, err := service.Search(context.Background(), Request{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !envelope.TotalIsExact || envelope.Total != 30 {
		t.Fatalf("filter-only queries afford an exact total: exact=%v total=%d",
			envelope.TotalIsExact, envelope.Total)
	}
	if len(envelope.Results) != 10 || !envelope.HasMore {
		t.Fatalf("unexpected page shape: %d has_more=%v", len(envelope.Results), envelope.HasMore)
	}
}

func TestSearchSimilarityOmittedWhenEmbeddingsDisabled(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{rows: makeRows(3), probeCount: 1}
	service := newTestService(store, embedding.Disabled{})

	envelope, err := service.Search(context.Background(), Request{Query: "engineer", Limit: 10})
	if err != nil {
		t.Fatalf("embedding outage must not fail search: %v", err)
	}
	for _, result := range envelope.Results {
		if result.Similarity != nil {
			t.Fatalf("similarity must be omitted, not fabricated: %+v", result)
		}
		if result.Explanation == "" {
			t.Fatalf("every result carries an explanation")
		}
	}
}

func TestSearchSimilarityFromStoredEmbeddings(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{
		rows:       makeRows(2),
		probeCount: 1,
		embeddings: map[int64]string{
			1: embedding.VectorLiteral([]float64{1, 0}),
			2: embedding.VectorLiteral([]float64{0, 1}),
		},
	}
	service := newTestService(store, fixedProvider{vector: []float64{1, 0}})

	envelope, err := service.Search(context.Background(), Request{Query: "software", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Heuristic ranker puts the parallel vector (cosine 1 -> 1.0) first.
	first := envelope.Results[0]
	if first.PostingID != 1 || first.Similarity == nil || *first.Similarity != 1.0 {
		t.Fatalf("unexpected top result: %+v", first)
	}
	second := envelope.Results[1]
	if second.Similarity == nil || *second.Similarity != 0.5 {
		t.Fatalf("orthogonal vector should rescale to 0.5, got %+v", second.Similarity)
	}
	if !strings.Contains(first.Explanation, "high content similarity") {
		t.Fatalf("expected a similarity band reason, got %q", first.Explanation)
	}
}

func TestSearchFacetFailureDegrades(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{rows: makeRows(2), probeCount: 1, facetErr: fmt.Errorf("sample failed")}
	service := newTestService(store, embedding.Disabled{})

	envelope, err := service.Search(context.Background(), Request{Query: "engineer", Limit: 10})
	if err != nil {
		t.Fatalf("facet failure must not fail search: %v", err)
	}
	if envelope.Facets == nil || len(envelope.Facets) != 0 {
		t.Fatalf("expected empty facets, got %+v", envelope.Facets)
	}
}

func TestFacetsGrouping(t *testing.T) {
	t.Parallel()

	store := &fakeSearchStore{
		facets: []db.FacetRow{
			{Facet: "county", Value: "dublin", Count: 40},
			{Facet: "county", Value: "cork", Count: 12},
			{Facet: "seniority", Value: "senior", Count: 30},
		},
	}
	planner := NewPlanner(store, zerolog.Nop())

	facets, err := planner.Facets(context.Background(), Filters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facets["county"]) != 2 || facets["county"][0].Value != "dublin" {
		t.Fatalf("unexpected county facet: %+v", facets["county"])
	}
	if len(facets["seniority"]) != 1 {
		t.Fatalf("unexpected seniority facet: %+v", facets["seniority"])
	}
}

func TestExplainDefaultsToGeneralMatch(t *testing.T) {
	t.Parallel()

	row := db.SearchRow{Title: "Warehouse Operative", Description: "manual handling"}
	if got := explain("astronaut", queryKeywords("astronaut"), row, nil); got != "general match" {
		t.Fatalf("expected default explanation, got %q", got)
	}
}

func TestQueryKeywordsKeepsTechTokens(t *testing.T) {
	t.Parallel()

	keywords := queryKeywords("Senior C++ and node.js developer for the team")
	joined := strings.Join(keywords, " ")
	if !strings.Contains(joined, "c++") || !strings.Contains(joined, "node.js") {
		t.Fatalf("tech tokens must survive tokenization: %v", keywords)
	}
	if strings.Contains(joined, "the") || strings.Contains(joined, "for") {
		t.Fatalf("stop words must be dropped: %v", keywords)
	}
}

func TestNormalizeEventType(t *testing.T) {
	t.Parallel()

	if got, ok := NormalizeEventType("Click"); !ok || got != ranking.EventClick {
		t.Fatalf("unexpected mapping: %q %v", got, ok)
	}
	if got, ok := NormalizeEventType("application"); !ok || got != ranking.EventApply {
		t.Fatalf("unexpected mapping: %q %v", got, ok)
	}
	if _, ok := NormalizeEventType("hover"); ok {
		t.Fatalf("unknown event types must be rejected")
	}
}
