package search

import (
	"context"
	"fmt"
)

// Facets computes sampled aggregates for the filter set: title
// clusters, hiring organizations, counties, seniority mix, role
// families, and sectors. The aggregation runs over at most
// facetSampleLimit recent rows, so counts never exceed the cap
// regardless of corpus size.
func (p *Planner) Facets(ctx context.Context, filters Filters) (Facets, error) {
	rows, err := p.store.QueryFacetSample(ctx, filters.toDB(), facetSampleLimit, facetValuesPerFacet)
	if err != nil {
		return nil, fmt.Errorf("facet sample: %w", err)
	}

	facets := make(Facets)
	for _, row := range rows {
		facets[row.Facet] = append(facets[row.Facet], FacetValue{Value: row.Value, Count: row.Count})
	}
	return facets, nil
}
