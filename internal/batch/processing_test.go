package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/MeKo-Tech/holdscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *recognizer.Engine {
	return recognizer.New(recognizer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func holdingPage(amount string) *testutil.Page {
	return testutil.NewPage().Row("鑫尊利28天持盈", amount).Asset("7", "鑫尊利28天持盈1号")
}

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   []string
	complete bool
}

func (r *recordingProgress) OnStart(total int) { r.started = total }
func (r *recordingProgress) OnProgress(done, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, done)
}
func (r *recordingProgress) OnError(file string, _ error) { r.errors = append(r.errors, file) }
func (r *recordingProgress) OnComplete(time.Duration)     { r.complete = true }

func TestProcessFile_InlineCatalog(t *testing.T) {
	path := holdingPage("12,345.67").WriteFile(t, testutil.CreateTempDir(t), "page.json")

	res := processFile(context.Background(), testEngine(), nil, path)
	require.NoError(t, res.Err)
	assert.Equal(t, path, res.File)

	holdings := res.Holdings()
	require.Len(t, holdings, 1)
	assert.Equal(t, "12345.67", holdings[0].Amount)
	assert.Equal(t, "7", holdings[0].AssetID)
	assert.True(t, holdings[0].Confirmed)
}

func TestProcessFile_StoreCatalog(t *testing.T) {
	store := catalog.NewMemoryStore()
	store.Put("u1", []catalog.Asset{{ID: "42", Name: "鑫尊利28天持盈1号"}})
	path := testutil.NewPage().User("u1").Row("鑫尊利28天持盈", "800.00").WriteFile(t, testutil.CreateTempDir(t), "p.json")

	res := processFile(context.Background(), testEngine(), store, path)
	require.NoError(t, res.Err)
	assert.Equal(t, "u1", res.UserID)
	require.Len(t, res.Holdings(), 1)
	assert.Equal(t, "42", res.Holdings()[0].AssetID)
}

func TestProcessFile_EmptyPage(t *testing.T) {
	path := testutil.NewPage().Asset("7", "x").WriteFile(t, testutil.CreateTempDir(t), "empty.json")

	res := processFile(context.Background(), testEngine(), nil, path)
	require.NoError(t, res.Err)
	assert.Empty(t, res.Holdings())
}

func TestProcessFile_Errors(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	bad := testutil.WriteFile(t, dir, "bad.json", "{not json")
	unsupported := testutil.WriteFile(t, dir, "unsupported.json", `{"pages": []}`)

	res := processFile(context.Background(), testEngine(), nil, bad)
	require.Error(t, res.Err)

	res = processFile(context.Background(), testEngine(), nil, unsupported)
	require.Error(t, res.Err)

	path := testutil.NewPage().User("u1").Row("鑫尊利28天持盈", "800.00").WriteFile(t, dir, "p.json")
	res = processFile(context.Background(), testEngine(), errStore{errors.New("backend down")}, path)
	require.ErrorContains(t, res.Err, "backend down")
}

type errStore struct{ err error }

func (s errStore) Snapshot(context.Context, string) ([]catalog.Asset, error) { return nil, s.err }
func (s errStore) Close(context.Context) error                               { return nil }

func TestProcessFilesParallel_PreservesOrder(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	var files []string
	for i := range 8 {
		files = append(files, holdingPage(fmt.Sprintf("%d,000.00", i+1)).WriteFile(t, dir, fmt.Sprintf("p%d.json", i)))
	}

	progress := &recordingProgress{}
	results, err := processFilesParallel(context.Background(), testEngine(), nil, files, 3, false, progress)
	require.NoError(t, err)
	require.Len(t, results, len(files))

	for i, res := range results {
		assert.Equal(t, files[i], res.File)
		require.Len(t, res.Holdings(), 1)
		assert.Equal(t, strconv.Itoa((i+1)*1000), res.Holdings()[0].Amount)
	}
	assert.Equal(t, len(files), progress.started)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, progress.progress)
	assert.True(t, progress.complete)
}

func TestProcessFilesParallel_StopOnError(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	good := holdingPage("100.00").WriteFile(t, dir, "a.json")
	bad := testutil.WriteFile(t, dir, "b.json", "{")

	_, err := processFilesParallel(context.Background(), testEngine(), nil, []string{good, bad}, 1, false, nil)
	require.ErrorContains(t, err, bad)
}

func TestProcessFilesParallel_ContinueOnError(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	good := holdingPage("100.00").WriteFile(t, dir, "a.json")
	bad := testutil.WriteFile(t, dir, "b.json", "{")

	progress := &recordingProgress{}
	results, err := processFilesParallel(context.Background(), testEngine(), nil, []string{good, bad}, 2, true, progress)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, []string{bad}, progress.errors)
}

func TestProcessFilesParallel_Cancelled(t *testing.T) {
	path := holdingPage("100.00").WriteFile(t, testutil.CreateTempDir(t), "a.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := processFilesParallel(ctx, testEngine(), nil, []string{path}, 1, false, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecognize_Document(t *testing.T) {
	doc := holdingPage("2,500.00").User("u9").Document()

	res := Recognize(context.Background(), testEngine(), nil, "stdin", doc)
	require.NoError(t, res.Err)
	assert.Equal(t, "stdin", res.File)
	assert.Equal(t, "u9", res.UserID)
	require.Len(t, res.Holdings(), 1)
	assert.Equal(t, "2500", res.Holdings()[0].Amount)
}
