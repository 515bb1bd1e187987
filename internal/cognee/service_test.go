package cognee

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/config"
	"github.com/cognee-ai/cognee-go/internal/graph"
	"github.com/cognee-ai/cognee-go/internal/types"
)

func setupApp(t *testing.T) *App {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "cognee.db")
	cfg.Storage.Isolated = true
	cfg.Storage.DataRoot = filepath.Join(dir, "data")
	cfg.Pipeline.BatchSize = 4
	cfg.Pipeline.Concurrency = 2

	app, err := Build(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

const sampleDoc = `Marie Curie worked with Pierre Curie in Paris.
Marie Curie discovered Polonium. Pierre Curie studied crystals.`

func TestService_AddCognifySearch(t *testing.T) {
	app := setupApp(t)
	svc := app.Service
	ctx := context.Background()

	owner, err := EnsureUser(ctx, svc.ACL().Store(), "owner@example.com")
	require.NoError(t, err)

	added, err := svc.Add(ctx, owner.ID, "notes", []string{sampleDoc})
	require.NoError(t, err)
	assert.Equal(t, 1, added.ItemsAdded)
	assert.Greater(t, added.ChunksStored, 0)

	report, err := svc.Cognify(ctx, owner.ID, []string{"notes"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	require.NoError(t, report.Results[0].Err)
	assert.Greater(t, report.Results[0].Nodes, 0)
	assert.Empty(t, report.SkippedDatasets)

	run, err := svc.Status(ctx, owner.ID, "notes", PipelineCognify)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.True(t, run.Status.IsTerminal())

	result, err := svc.Search(ctx, owner.ID, "Marie Curie", SearchTypeChunks, []string{"notes"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Hits)
	assert.Empty(t, result.SkippedDatasets)
}

func TestService_SearchDeniedWithoutGrant(t *testing.T) {
	app := setupApp(t)
	svc := app.Service
	ctx := context.Background()

	owner, err := EnsureUser(ctx, svc.ACL().Store(), "owner@example.com")
	require.NoError(t, err)
	outsider, err := EnsureUser(ctx, svc.ACL().Store(), "outsider@example.com")
	require.NoError(t, err)

	_, err = svc.Add(ctx, owner.ID, "notes", []string{sampleDoc})
	require.NoError(t, err)

	_, err = svc.Search(ctx, outsider.ID, "Marie Curie", SearchTypeChunks, []string{"notes"})
	require.Error(t, err)
	assert.True(t, types.IsPermissionDenied(err))

	// A read grant from the owner opens the dataset up.
	ds, err := svc.Status(ctx, owner.ID, "notes", PipelineAdd)
	require.NoError(t, err)
	require.NotNil(t, ds)

	datasets, err := svc.ACL().ResolvePermissions(ctx, owner.ID, accesscontrol.PermissionRead)
	require.NoError(t, err)
	require.Len(t, datasets, 1)

	require.NoError(t, svc.ACL().GivePermission(ctx, owner.ID, outsider.ID, datasets[0].ID, accesscontrol.PermissionRead))

	result, err := svc.Search(ctx, outsider.ID, "Marie Curie", SearchTypeChunks, []string{"notes"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Hits)
}

func TestService_SearchPartialDenyReportsSkipped(t *testing.T) {
	app := setupApp(t)
	svc := app.Service
	ctx := context.Background()

	owner, err := EnsureUser(ctx, svc.ACL().Store(), "owner@example.com")
	require.NoError(t, err)

	_, err = svc.Add(ctx, owner.ID, "mine", []string{sampleDoc})
	require.NoError(t, err)

	result, err := svc.Search(ctx, owner.ID, "Marie Curie", SearchTypeChunks, []string{"mine", "not-mine"})
	require.NoError(t, err)
	assert.Equal(t, []string{"not-mine"}, result.SkippedDatasets)

	// Naming only datasets the caller cannot use fails the same way
	// whether they are someone else's or do not exist at all.
	_, err = svc.Search(ctx, owner.ID, "Marie Curie", SearchTypeChunks, []string{"not-mine"})
	require.Error(t, err)
	assert.True(t, types.IsPermissionDenied(err))
}

func TestService_CognifyIsIdempotent(t *testing.T) {
	app := setupApp(t)
	svc := app.Service
	ctx := context.Background()

	owner, err := EnsureUser(ctx, svc.ACL().Store(), "owner@example.com")
	require.NoError(t, err)

	added, err := svc.Add(ctx, owner.ID, "notes", []string{sampleDoc})
	require.NoError(t, err)

	_, err = svc.Cognify(ctx, owner.ID, []string{"notes"})
	require.NoError(t, err)

	handles, err := svc.route(ctx, added.Dataset)
	require.NoError(t, err)
	firstNodes, err := handles.Graph.ListNodes(ctx, "")
	require.NoError(t, err)
	firstEdges, err := handles.Graph.ListEdges(ctx)
	require.NoError(t, err)

	report, err := svc.Cognify(ctx, owner.ID, []string{"notes"})
	require.NoError(t, err)
	require.NoError(t, report.Results[0].Err)

	secondNodes, err := handles.Graph.ListNodes(ctx, "")
	require.NoError(t, err)
	secondEdges, err := handles.Graph.ListEdges(ctx)
	require.NoError(t, err)

	assert.Equal(t, len(firstNodes), len(secondNodes), "re-running cognify must not duplicate nodes")
	assert.Equal(t, len(firstEdges), len(secondEdges), "re-running cognify must not duplicate edges")
}

func TestService_MemifyDerivesCoOccurrence(t *testing.T) {
	app := setupApp(t)
	svc := app.Service
	ctx := context.Background()

	owner, err := EnsureUser(ctx, svc.ACL().Store(), "owner@example.com")
	require.NoError(t, err)

	added, err := svc.Add(ctx, owner.ID, "notes", []string{sampleDoc})
	require.NoError(t, err)
	_, err = svc.Cognify(ctx, owner.ID, []string{"notes"})
	require.NoError(t, err)

	result, err := svc.Memify(ctx, owner.ID, "notes")
	require.NoError(t, err)
	assert.Greater(t, result.DerivedEdges, 0)

	handles, err := svc.route(ctx, added.Dataset)
	require.NoError(t, err)
	edges, err := handles.Graph.ListEdges(ctx)
	require.NoError(t, err)

	count := 0
	for _, e := range edges {
		if e.Type == graph.EdgeTypeCoOccursWith {
			count++
		}
	}
	assert.Equal(t, result.DerivedEdges, count)

	// Memify is idempotent: same pairs, refreshed weights.
	again, err := svc.Memify(ctx, owner.ID, "notes")
	require.NoError(t, err)
	assert.Equal(t, result.DerivedEdges, again.DerivedEdges)
}

func TestService_DatasetsAreIsolated(t *testing.T) {
	app := setupApp(t)
	svc := app.Service
	ctx := context.Background()

	alice, err := EnsureUser(ctx, svc.ACL().Store(), "alice@example.com")
	require.NoError(t, err)
	bob, err := EnsureUser(ctx, svc.ACL().Store(), "bob@example.com")
	require.NoError(t, err)

	aliceAdd, err := svc.Add(ctx, alice.ID, "notes", []string{"Alpha visited Berlin."})
	require.NoError(t, err)
	bobAdd, err := svc.Add(ctx, bob.ID, "notes", []string{"Gamma visited Delhi."})
	require.NoError(t, err)

	// Same dataset name, different owners: distinct datasets on
	// distinct physical paths.
	assert.NotEqual(t, aliceAdd.Dataset.ID, bobAdd.Dataset.ID)

	aliceHandles, err := svc.route(ctx, aliceAdd.Dataset)
	require.NoError(t, err)
	bobHandles, err := svc.route(ctx, bobAdd.Dataset)
	require.NoError(t, err)
	assert.NotEqual(t, aliceHandles.VectorPath, bobHandles.VectorPath)

	// Bob's search never sees Alice's content.
	result, err := svc.Search(ctx, bob.ID, "Berlin", SearchTypeChunks, nil)
	require.NoError(t, err)
	for _, hit := range result.Hits {
		assert.NotContains(t, hit.Content, "Alpha")
	}
}

func TestService_DeleteDatasetRequiresPermission(t *testing.T) {
	app := setupApp(t)
	svc := app.Service
	ctx := context.Background()

	owner, err := EnsureUser(ctx, svc.ACL().Store(), "owner@example.com")
	require.NoError(t, err)
	outsider, err := EnsureUser(ctx, svc.ACL().Store(), "outsider@example.com")
	require.NoError(t, err)

	added, err := svc.Add(ctx, owner.ID, "notes", []string{sampleDoc})
	require.NoError(t, err)

	handles, err := svc.route(ctx, added.Dataset)
	require.NoError(t, err)

	err = svc.DeleteDataset(ctx, outsider.ID, added.Dataset.ID)
	require.Error(t, err)
	assert.True(t, types.IsPermissionDenied(err))

	require.NoError(t, svc.DeleteDataset(ctx, owner.ID, added.Dataset.ID))

	_, err = svc.Status(ctx, owner.ID, "notes", PipelineAdd)
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))

	// The dataset's on-disk storage goes with it.
	_, err = os.Stat(handles.VectorPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(handles.GraphPath)
	assert.True(t, os.IsNotExist(err))
}
