package cognee

import (
	"context"
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/dataset"
	"github.com/cognee-ai/cognee-go/internal/graph"
	"github.com/cognee-ai/cognee-go/internal/llm"
	"github.com/cognee-ai/cognee-go/internal/pipeline"
	"github.com/cognee-ai/cognee-go/internal/storage"
	"github.com/cognee-ai/cognee-go/internal/types"
	"github.com/cognee-ai/cognee-go/internal/vector"
)

// CognifyResult reports the outcome of cognify for one dataset.
type CognifyResult struct {
	DatasetID   types.ID `json:"dataset_id"`
	DatasetName string   `json:"dataset_name"`
	Nodes       int      `json:"nodes"`
	Edges       int      `json:"edges"`
	Err         error    `json:"-"`
	Error       string   `json:"error,omitempty"`
}

// CognifyReport is the outcome across all requested datasets.
type CognifyReport struct {
	Results         []CognifyResult `json:"results"`
	SkippedDatasets []string        `json:"skipped_datasets,omitempty"`
}

// Cognify turns each permitted dataset's raw data items into a
// knowledge graph: chunk, extract entities and relations, summarize,
// and persist graph and vector records with content-derived identity
// so re-runs upsert instead of duplicate. Datasets run concurrently,
// each under its own pipeline run. Requires write; requested names
// without it are reported as skipped, and a request covering only
// denied names fails outright.
func (s *Service) Cognify(ctx context.Context, userID types.ID, datasetNames []string) (*CognifyReport, error) {
	selected, skipped, err := s.resolveNamed(ctx, userID, datasetNames, accesscontrol.PermissionWrite)
	if err != nil {
		return nil, err
	}

	datasetIDs := make([]types.ID, len(selected))
	inputs := make(map[types.ID][]any, len(selected))
	handlesByID := make(map[types.ID]storage.Handles, len(selected))
	byID := make(map[types.ID]*dataset.Dataset, len(selected))
	counts := make(map[types.ID]*graphCounts, len(selected))

	for i, ds := range selected {
		items, err := s.datasets.ListDataItems(ctx, ds.ID)
		if err != nil {
			return nil, err
		}
		handles, err := s.route(ctx, ds)
		if err != nil {
			return nil, err
		}

		input := make([]any, len(items))
		for j, item := range items {
			input[j] = item.Content
		}
		datasetIDs[i] = ds.ID
		inputs[ds.ID] = input
		handlesByID[ds.ID] = handles
		byID[ds.ID] = ds
		counts[ds.ID] = &graphCounts{}
	}

	build := func(id types.ID) pipeline.Pipeline {
		return s.cognifyPipeline(handlesByID[id], counts[id])
	}
	results := pipeline.RunAcrossDatasets(ctx, s.runner, build, inputs, datasetIDs, userID)

	report := &CognifyReport{SkippedDatasets: skipped}
	for _, r := range results {
		ds := byID[r.DatasetID]
		result := CognifyResult{
			DatasetID:   r.DatasetID,
			DatasetName: ds.Name,
			Nodes:       counts[r.DatasetID].nodes,
			Edges:       counts[r.DatasetID].edges,
			Err:         r.Err,
		}
		if r.Err != nil {
			result.Error = r.Err.Error()
		}
		report.Results = append(report.Results, result)
	}
	return report, nil
}

// graphCounts accumulates persisted node and edge counts for one
// dataset's cognify run. persist-graph runs serially within a run, so
// no lock is needed.
type graphCounts struct {
	nodes int
	edges int
}

// extracted carries one chunk's graph extraction between the extract
// and persist stages.
type extracted struct {
	chunk    chunkPayload
	entities []graph.Node
	edges    []graph.Edge
	summary  string
}

// cognifyPipeline builds the chunk, extract, persist chain for one
// dataset.
func (s *Service) cognifyPipeline(handles storage.Handles, counts *graphCounts) pipeline.Pipeline {
	chunk := pipeline.Task{
		Name:        "chunk",
		BatchSize:   s.batchSize,
		Concurrency: 1,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			var out []any
			for _, item := range items {
				text, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("cognify expects text items, got %T", item)
				}
				hash := dataset.HashContent(text)
				for i, c := range splitChunks(text, s.chunkWords) {
					out = append(out, chunkPayload{DocHash: hash, Index: i, Text: c})
				}
			}
			return out, nil
		},
	}

	extract := pipeline.Task{
		Name:        "extract",
		BatchSize:   1,
		Concurrency: s.concurrency,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			out := make([]any, 0, len(items))
			for _, item := range items {
				c := item.(chunkPayload)

				var payload llm.GraphPayload
				err := pipeline.RetryTransient(ctx, 30*time.Second, func() error {
					var extractErr error
					payload, extractErr = s.completer.ExtractGraph(ctx, c.Text)
					return extractErr
				})
				if err != nil {
					return nil, err
				}

				nodes, edges := toGraph(payload)
				out = append(out, extracted{
					chunk:    c,
					entities: nodes,
					edges:    edges,
					summary:  payload.Summary,
				})
			}
			return out, nil
		},
	}

	persist := pipeline.Task{
		Name:        "persist-graph",
		BatchSize:   s.batchSize,
		Concurrency: 1,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			return s.persistExtractions(ctx, handles, counts, items)
		},
	}

	return pipeline.New(PipelineCognify, chunk, extract, persist)
}

// toGraph converts an extraction payload into graph values. Entity
// node identity derives from type and name, so the same entity
// mentioned in different chunks, documents, or re-runs resolves to
// one node.
func toGraph(payload llm.GraphPayload) ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, 0, len(payload.Entities))
	byName := make(map[string]types.ID, len(payload.Entities))

	for _, e := range payload.Entities {
		node := graph.NewNode(graph.NodeTypeEntity, e.Name)
		node.Properties = map[string]any{"entity_type": e.Type}
		nodes = append(nodes, node)
		byName[e.Name] = node.ID
	}

	edges := make([]graph.Edge, 0, len(payload.Relations))
	for _, r := range payload.Relations {
		sourceID, okS := byName[r.Source]
		targetID, okT := byName[r.Target]
		if !okS || !okT {
			continue
		}
		edge := graph.NewEdge(sourceID, targetID, graph.EdgeTypeRelatesTo)
		if r.Type != "" {
			edge.Properties = map[string]any{"relation": r.Type}
		}
		edges = append(edges, edge)
	}
	return nodes, edges
}

// persistExtractions upserts one batch of extractions into the
// dataset's graph and vector stores: chunk nodes, entity nodes,
// mention edges, relation edges, summary nodes, and entity vectors.
func (s *Service) persistExtractions(ctx context.Context, handles storage.Handles, counts *graphCounts, items []any) ([]any, error) {
	var nodes []graph.Node
	var edges []graph.Edge
	var entityTexts []string
	var entityIDs []types.ID

	seenEntities := make(map[types.ID]struct{})

	for _, item := range items {
		ex := item.(extracted)

		chunkName := fmt.Sprintf("%s:%d", ex.chunk.DocHash, ex.chunk.Index)
		chunkNode := graph.NewNode(graph.NodeTypeChunk, chunkName)
		chunkNode.Properties = map[string]any{"text": ex.chunk.Text}
		nodes = append(nodes, chunkNode)

		for _, entity := range ex.entities {
			if _, dup := seenEntities[entity.ID]; !dup {
				seenEntities[entity.ID] = struct{}{}
				nodes = append(nodes, entity)
				entityTexts = append(entityTexts, entity.Name)
				entityIDs = append(entityIDs, entity.ID)
			}
			edges = append(edges, graph.NewEdge(chunkNode.ID, entity.ID, graph.EdgeTypeMentions))
		}
		edges = append(edges, ex.edges...)

		if ex.summary != "" {
			summaryNode := graph.NewNode(graph.NodeTypeSummary, chunkName+":summary")
			summaryNode.Properties = map[string]any{"text": ex.summary}
			nodes = append(nodes, summaryNode)
			edges = append(edges, graph.NewEdge(summaryNode.ID, chunkNode.ID, graph.EdgeTypeSummarizes))
		}
	}

	if err := handles.Graph.UpsertNodes(ctx, nodes); err != nil {
		return nil, err
	}
	if err := handles.Graph.UpsertEdges(ctx, edges); err != nil {
		return nil, err
	}

	if len(entityTexts) > 0 {
		embeddings, err := s.embedder.EmbedBatch(ctx, entityTexts)
		if err != nil {
			return nil, err
		}
		records := make([]vector.Record, len(entityTexts))
		for i, text := range entityTexts {
			records[i] = vector.NewRecord(entityIDs[i].String(), text, embeddings[i], map[string]any{
				"kind":    "entity",
				"node_id": entityIDs[i].String(),
			})
		}
		if err := handles.Vector.StoreBatch(ctx, records); err != nil {
			return nil, err
		}
	}

	counts.nodes += len(nodes)
	counts.edges += len(edges)

	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out, nil
}
