package cognee

import (
	"context"
	"sort"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/graph"
	"github.com/cognee-ai/cognee-go/internal/pipeline"
	"github.com/cognee-ai/cognee-go/internal/storage"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// MemifyResult reports the enrichment outcome.
type MemifyResult struct {
	DatasetID    types.ID `json:"dataset_id"`
	DerivedEdges int      `json:"derived_edges"`
}

// Memify enriches an already-cognified dataset: entities mentioned by
// the same chunk gain weighted co-occurrence edges, derived purely
// from the existing subgraph. Running memify twice yields the same
// edges with recomputed weights, not duplicates. Requires write.
func (s *Service) Memify(ctx context.Context, userID types.ID, datasetName string) (*MemifyResult, error) {
	ds, err := s.datasets.GetByName(ctx, userID, datasetName)
	if err != nil {
		return nil, err
	}
	if err := s.acl.RequirePermission(ctx, userID, ds.ID, accesscontrol.PermissionWrite); err != nil {
		return nil, err
	}

	handles, err := s.route(ctx, ds)
	if err != nil {
		return nil, err
	}

	derived := 0
	p := s.memifyPipeline(handles, &derived)

	// The pipeline input is a single marker item; the read task pulls
	// the actual subgraph from the dataset's graph store.
	if _, err := s.runner.ExecuteSync(ctx, p, []any{ds.ID.String()}, ds.ID, userID); err != nil {
		return nil, err
	}

	s.logger.Info("dataset enriched",
		"dataset_id", ds.ID.Short(),
		"derived_edges", derived,
	)
	return &MemifyResult{DatasetID: ds.ID, DerivedEdges: derived}, nil
}

// coOccurrence is one entity pair sharing at least one chunk.
type coOccurrence struct {
	Source types.ID
	Target types.ID
	Weight int
}

// memifyPipeline builds the read, derive, persist chain.
func (s *Service) memifyPipeline(handles storage.Handles, derived *int) pipeline.Pipeline {
	read := pipeline.Task{
		Name: "read-subgraph",
		Run: func(ctx context.Context, items []any) ([]any, error) {
			edges, err := handles.Graph.ListEdges(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]any, 0, len(edges))
			for _, e := range edges {
				if e.Type == graph.EdgeTypeMentions {
					out = append(out, e)
				}
			}
			return out, nil
		},
	}

	derive := pipeline.Task{
		Name: "derive-cooccurrence",
		Run: func(ctx context.Context, items []any) ([]any, error) {
			// Group mentioned entities by chunk.
			byChunk := make(map[types.ID][]types.ID)
			for _, item := range items {
				e := item.(graph.Edge)
				byChunk[e.SourceID] = append(byChunk[e.SourceID], e.TargetID)
			}

			// Count pair occurrences across chunks. Pairs are ordered
			// by ID so (a, b) and (b, a) collapse into one edge.
			type pairKey struct{ a, b types.ID }
			weights := make(map[pairKey]int)
			for _, entities := range byChunk {
				sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
				for i := 0; i < len(entities); i++ {
					for j := i + 1; j < len(entities); j++ {
						if entities[i] != entities[j] {
							weights[pairKey{entities[i], entities[j]}]++
						}
					}
				}
			}

			pairs := make([]coOccurrence, 0, len(weights))
			for key, weight := range weights {
				pairs = append(pairs, coOccurrence{Source: key.a, Target: key.b, Weight: weight})
			}
			sort.Slice(pairs, func(i, j int) bool {
				if pairs[i].Source != pairs[j].Source {
					return pairs[i].Source < pairs[j].Source
				}
				return pairs[i].Target < pairs[j].Target
			})

			out := make([]any, len(pairs))
			for i, p := range pairs {
				out[i] = p
			}
			return out, nil
		},
	}

	persist := pipeline.Task{
		Name:      "persist-derived",
		BatchSize: s.batchSize,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			edges := make([]graph.Edge, len(items))
			for i, item := range items {
				pair := item.(coOccurrence)
				edge := graph.NewEdge(pair.Source, pair.Target, graph.EdgeTypeCoOccursWith)
				edge.Properties = map[string]any{"weight": pair.Weight}
				edges[i] = edge
			}
			if err := handles.Graph.UpsertEdges(ctx, edges); err != nil {
				return nil, err
			}
			*derived += len(edges)
			return items, nil
		},
	}

	return pipeline.New(PipelineMemify, read, derive, persist)
}
