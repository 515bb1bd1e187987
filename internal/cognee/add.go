package cognee

import (
	"context"
	"fmt"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/dataset"
	"github.com/cognee-ai/cognee-go/internal/pipeline"
	"github.com/cognee-ai/cognee-go/internal/types"
	"github.com/cognee-ai/cognee-go/internal/vector"
)

// AddResult reports what the ingest pipeline stored.
type AddResult struct {
	Dataset      *dataset.Dataset `json:"dataset"`
	ItemsAdded   int              `json:"items_added"`
	ChunksStored int              `json:"chunks_stored"`
}

// Add ingests raw text items into the named dataset, creating the
// dataset with full owner grants when it does not exist. Items are
// normalized, persisted as data items, chunked, and the chunks
// embedded into the dataset's vector store. Requires write.
func (s *Service) Add(ctx context.Context, userID types.ID, datasetName string, items []string) (*AddResult, error) {
	if len(items) == 0 {
		return nil, types.NewError(types.ErrCodeValidation, "add requires at least one item")
	}

	ds, err := s.ensureDataset(ctx, userID, datasetName)
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

	input := make([]any, 0, len(items))
	for _, item := range items {
		input = append(input, item)
	}

	p := s.addPipeline(ds, handles.Vector)
	out, err := s.runner.ExecuteSync(ctx, p, input, ds.ID, userID)
	if err != nil {
		return nil, err
	}

	result := &AddResult{Dataset: ds, ItemsAdded: len(items), ChunksStored: len(out)}
	s.logger.Info("items added",
		"dataset_id", ds.ID.Short(),
		"items", result.ItemsAdded,
		"chunks", result.ChunksStored,
	)
	return result, nil
}

// chunkPayload carries one chunk through the ingest pipeline.
type chunkPayload struct {
	DocHash string
	Index   int
	Text    string
}

// addPipeline builds the ingest chain: normalize and persist raw
// items, chunk them, embed and store the chunks.
func (s *Service) addPipeline(ds *dataset.Dataset, store vector.Store) pipeline.Pipeline {
	normalize := pipeline.Task{
		Name:        "normalize",
		BatchSize:   s.batchSize,
		Concurrency: 1,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			out := make([]any, 0, len(items))
			for _, item := range items {
				text, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("add accepts text items, got %T", item)
				}
				normalized := normalizeContent(text)
				if normalized == "" {
					continue
				}
				record := dataset.NewDataItem(ds.ID, normalized)
				if err := s.datasets.SaveDataItem(ctx, record); err != nil {
					return nil, err
				}
				out = append(out, normalized)
			}
			return out, nil
		},
	}

	chunk := pipeline.Task{
		Name:        "chunk",
		BatchSize:   s.batchSize,
		Concurrency: 1,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			var out []any
			for _, item := range items {
				text := item.(string)
				hash := dataset.HashContent(text)
				for i, c := range splitChunks(text, s.chunkWords) {
					out = append(out, chunkPayload{DocHash: hash, Index: i, Text: c})
				}
			}
			return out, nil
		},
	}

	embed := pipeline.Task{
		Name:        "embed-chunks",
		BatchSize:   s.batchSize,
		Concurrency: s.concurrency,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			texts := make([]string, len(items))
			for i, item := range items {
				texts[i] = item.(chunkPayload).Text
			}
			embeddings, err := s.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return nil, err
			}

			records := make([]vector.Record, len(items))
			for i, item := range items {
				c := item.(chunkPayload)
				id := types.DeriveID(fmt.Sprintf("chunk:%s:%s:%d", ds.ID, c.DocHash, c.Index))
				records[i] = vector.NewRecord(id.String(), c.Text, embeddings[i], map[string]any{
					"kind":     "chunk",
					"doc_hash": c.DocHash,
					"index":    c.Index,
				})
			}
			if err := store.StoreBatch(ctx, records); err != nil {
				return nil, err
			}

			out := make([]any, len(records))
			for i, r := range records {
				out[i] = r.ID
			}
			return out, nil
		},
	}

	return pipeline.New(PipelineAdd, normalize, chunk, embed)
}
