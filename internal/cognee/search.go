package cognee

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/storage"
	"github.com/cognee-ai/cognee-go/internal/types"
	"github.com/cognee-ai/cognee-go/internal/vector"
)

// SearchType selects what a search returns.
type SearchType string

const (
	// SearchTypeChunks returns raw chunk matches from the vector index.
	SearchTypeChunks SearchType = "chunks"

	// SearchTypeInsights returns matched entities with their graph
	// neighborhood.
	SearchTypeInsights SearchType = "insights"

	// SearchTypeCompletion synthesizes an answer over the matched
	// context.
	SearchTypeCompletion SearchType = "completion"
)

// IsValid reports whether the search type is known.
func (t SearchType) IsValid() bool {
	switch t {
	case SearchTypeChunks, SearchTypeInsights, SearchTypeCompletion:
		return true
	}
	return false
}

// SearchHit is one match from one dataset.
type SearchHit struct {
	DatasetID   types.ID `json:"dataset_id"`
	DatasetName string   `json:"dataset_name"`
	Content     string   `json:"content"`
	Score       float64  `json:"score"`

	// Related holds neighborhood node names for insight searches.
	Related []string `json:"related,omitempty"`
}

// SearchResult is the outcome of a search across datasets.
type SearchResult struct {
	Query string      `json:"query"`
	Type  SearchType  `json:"type"`
	Hits  []SearchHit `json:"hits"`

	// Completion is filled for completion searches.
	Completion string `json:"completion,omitempty"`

	// SkippedDatasets lists requested datasets the search could not
	// read. Partial denial is explicit, never silent.
	SkippedDatasets []string `json:"skipped_datasets,omitempty"`
}

const searchTopK = 10

// Search queries every readable dataset among the requested ones.
// Datasets the user cannot read are reported in SkippedDatasets; when
// nothing requested is readable the search fails with a permission
// error before touching any store.
func (s *Service) Search(ctx context.Context, userID types.ID, query string, searchType SearchType, datasetNames []string) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewError(types.ErrCodeValidation, "search query cannot be empty")
	}
	if searchType == "" {
		searchType = SearchTypeChunks
	}
	if !searchType.IsValid() {
		return nil, types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("unknown search type %q", searchType))
	}

	selected, skipped, err := s.resolveNamed(ctx, userID, datasetNames, accesscontrol.PermissionRead)
	if err != nil {
		return nil, err
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	q := vector.Query{Embedding: embedding, TopK: searchTopK}
	if searchType == SearchTypeChunks || searchType == SearchTypeCompletion {
		q.Filters = map[string]any{"kind": "chunk"}
	} else {
		q.Filters = map[string]any{"kind": "entity"}
	}

	result := &SearchResult{Query: query, Type: searchType, SkippedDatasets: skipped}

	for _, ds := range selected {
		handles, err := s.route(ctx, ds)
		if err != nil {
			return nil, err
		}
		matches, err := handles.Vector.Search(ctx, q)
		if err != nil {
			return nil, err
		}

		for _, m := range matches {
			hit := SearchHit{
				DatasetID:   ds.ID,
				DatasetName: ds.Name,
				Content:     m.Record.Content,
				Score:       m.Score,
			}
			if searchType == SearchTypeInsights {
				hit.Related = s.neighborhood(ctx, handles, m.Record)
			}
			result.Hits = append(result.Hits, hit)
		}
	}

	if searchType == SearchTypeCompletion {
		completion, err := s.synthesize(ctx, query, result.Hits)
		if err != nil {
			return nil, err
		}
		result.Completion = completion
	}

	s.logger.Debug("search completed",
		"user_id", userID.Short(),
		"type", string(searchType),
		"hits", len(result.Hits),
		"skipped", len(result.SkippedDatasets),
	)
	return result, nil
}

// neighborhood resolves the graph neighborhood of a matched entity
// record. Lookup failures degrade to an empty neighborhood instead of
// failing the search.
func (s *Service) neighborhood(ctx context.Context, handles storage.Handles, record vector.Record) []string {
	nodeIDRaw, ok := record.Metadata["node_id"].(string)
	if !ok {
		return nil
	}
	nodeID, err := types.ParseID(nodeIDRaw)
	if err != nil {
		return nil
	}

	neighbors, _, err := handles.Graph.Neighbors(ctx, nodeID)
	if err != nil {
		s.logger.Warn("neighborhood lookup failed",
			"node_id", nodeID.Short(),
			"error", err.Error(),
		)
		return nil
	}

	names := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		names = append(names, n.Name)
	}
	return names
}

// synthesize asks the completer to answer the query over the matched
// context.
func (s *Service) synthesize(ctx context.Context, query string, hits []SearchHit) (string, error) {
	if len(hits) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("Answer the question using only the context below.\n\nContext:\n")
	for _, hit := range hits {
		sb.WriteString("- ")
		sb.WriteString(hit.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)

	return s.completer.Complete(ctx, sb.String())
}
