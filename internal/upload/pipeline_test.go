package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
	"github.com/docbox-nz/docbox/internal/storage"
)

// fakeStorage is a map-backed Storage recording every mutation.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	failKey string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) CreateBucket(context.Context) error { return nil }
func (s *fakeStorage) DeleteBucket(context.Context) error { return nil }

func (s *fakeStorage) UploadFile(_ context.Context, key, _ string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKey != "" && bytes.Contains([]byte(key), []byte(s.failKey)) {
		return errors.New("upload refused")
	}
	s.objects[key] = content
	return nil
}

func (s *fakeStorage) GetFile(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *fakeStorage) DeleteFile(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) CreatePresigned(context.Context, string, int64) (storage.PresignedRequest, time.Time, error) {
	return storage.PresignedRequest{}, time.Time{}, nil
}

func (s *fakeStorage) CreatePresignedDownload(context.Context, string, time.Duration) (storage.PresignedRequest, time.Time, error) {
	return storage.PresignedRequest{}, time.Time{}, nil
}

func (s *fakeStorage) AddBucketNotifications(context.Context, string) error { return nil }
func (s *fakeStorage) SetBucketCORSOrigins(context.Context, []string) error { return nil }

func (s *fakeStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

// fakeIndex records AddData/DeleteData calls.
type fakeIndex struct {
	mu      sync.Mutex
	items   map[string]search.IndexData
	failAdd bool
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{items: make(map[string]search.IndexData)}
}

func (i *fakeIndex) CreateIndex(context.Context) error       { return nil }
func (i *fakeIndex) DeleteIndex(context.Context) error       { return nil }
func (i *fakeIndex) IndexExists(context.Context) (bool, error) { return true, nil }

func (i *fakeIndex) AddData(_ context.Context, items []search.IndexData) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failAdd {
		return errors.New("index refused")
	}
	for _, item := range items {
		i.items[item.ItemID] = item
	}
	return nil
}

func (i *fakeIndex) UpdateData(context.Context, string, search.UpdateData) error { return nil }

func (i *fakeIndex) DeleteData(_ context.Context, itemID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.items, itemID)
	return nil
}

func (i *fakeIndex) DeleteByScope(context.Context, models.DocumentBoxScope) error { return nil }

func (i *fakeIndex) SearchIndex(context.Context, []models.DocumentBoxScope, search.Request, *models.FolderID) (search.Results, error) {
	return search.Results{}, nil
}

func (i *fakeIndex) SearchIndexFile(context.Context, models.DocumentBoxScope, string, search.Request) (search.Results, error) {
	return search.Results{}, nil
}

func (i *fakeIndex) GetPendingMigrations([]models.TenantMigration) []search.Migration { return nil }
func (i *fakeIndex) ApplyMigration(_ context.Context, m search.Migration) error       { return nil }

func (i *fakeIndex) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.items)
}

func (i *fakeIndex) get(id string) (search.IndexData, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	item, ok := i.items[id]
	return item, ok
}

// nestingProcessor emits one nested attachment for every file it sees,
// so tests can observe how far unpacking recursed.
type nestingProcessor struct{}

func (p *nestingProcessor) Process(_ context.Context, _ []byte, _ string, _ ProcessingConfig) (*Output, error) {
	// Emit one nested attachment unconditionally; the pipeline's unpack
	// counter is what bounds the recursion.
	return &Output{
		AdditionalFiles: []AdditionalFile{{
			Name:  "attachment.eml",
			Mime:  "message/rfc822",
			Bytes: []byte("inner"),
		}},
	}, nil
}

func testPipeline(store *fakeStorage, index *fakeIndex, proc Processor) *Pipeline {
	return &Pipeline{Storage: store, Search: index, Processor: proc}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestPrepare_uploadsMainAndGenerated(t *testing.T) {
	store := newFakeStorage()
	index := newFakeIndex()

	proc := processorFunc(func(_ context.Context, _ []byte, _ string, _ ProcessingConfig) (*Output, error) {
		return &Output{
			UploadQueue: []QueuedUpload{
				{Type: models.GeneratedTextContent, Mime: "text/plain", Data: []byte("page one\x0Cpage two")},
				{Type: models.GeneratedSmallThumbnail, Mime: "image/png", Data: []byte{1, 2, 3}},
			},
			IndexMetadata: &IndexMetadata{Pages: []Page{{Page: 0, Content: "page one"}, {Page: 1, Content: "page two"}}},
		}, nil
	})

	p := testPipeline(store, index, proc)
	state := &ledger{}

	data, err := p.prepare(context.Background(), Input{
		FolderID: uuid.New(),
		Scope:    "test",
		Name:     "report.pdf",
		Mime:     "application/pdf",
		Bytes:    []byte("%PDF"),
	}, state, DefaultMaxUnpackIterations)
	require.NoError(t, err)

	require.Len(t, data.generated, 2)
	// Main upload + two generated artifacts.
	require.Len(t, store.keys(), 3)

	item, ok := index.get(data.file.ID.String())
	require.True(t, ok, "main file was not indexed")
	require.Len(t, item.Pages, 2)

	storageKeys, searchIDs := state.snapshot()
	require.Len(t, storageKeys, 3)
	require.Len(t, searchIDs, 1)
}

// processorFunc adapts a function to the Processor interface.
type processorFunc func(ctx context.Context, content []byte, mime string, config ProcessingConfig) (*Output, error)

func (f processorFunc) Process(ctx context.Context, content []byte, mime string, config ProcessingConfig) (*Output, error) {
	return f(ctx, content, mime, config)
}

func TestPrepare_unpackBoundedAtDefault(t *testing.T) {
	p := testPipeline(newFakeStorage(), newFakeIndex(), &nestingProcessor{})
	state := &ledger{}

	data, err := p.prepare(context.Background(), Input{
		FolderID: uuid.New(),
		Scope:    "test",
		Name:     "outer.eml",
		Mime:     "message/rfc822",
		Bytes:    []byte("outer"),
	}, state, DefaultMaxUnpackIterations)
	require.NoError(t, err)

	// Default budget of one: the immediate attachment is unpacked, but
	// the attachment's own nested container is discarded.
	require.Len(t, data.additional, 1)
	require.Empty(t, data.additional[0].additional)

	child := data.additional[0]
	require.NotNil(t, child.file.ParentFileID)
	require.Equal(t, data.file.ID, *child.file.ParentFileID)
}

func TestPrepare_unpackDisabledAtZero(t *testing.T) {
	p := testPipeline(newFakeStorage(), newFakeIndex(), &nestingProcessor{})
	state := &ledger{}

	data, err := p.prepare(context.Background(), Input{
		FolderID: uuid.New(),
		Scope:    "test",
		Name:     "outer.eml",
		Mime:     "message/rfc822",
		Bytes:    []byte("outer"),
	}, state, 0)
	require.NoError(t, err)
	require.Empty(t, data.additional)
}

func TestUpload_phaseAFailureRollsBack(t *testing.T) {
	store := newFakeStorage()
	index := newFakeIndex()

	proc := processorFunc(func(_ context.Context, _ []byte, _ string, _ ProcessingConfig) (*Output, error) {
		return &Output{
			UploadQueue: []QueuedUpload{
				{Type: models.GeneratedTextContent, Mime: "text/plain", Data: []byte("text")},
			},
		}, nil
	})

	// The generated artifact uploads fine; the main upload fails because
	// every main key embeds the file name.
	store.failKey = "broken.pdf"

	p := testPipeline(store, index, proc)
	_, err := p.Upload(context.Background(), Input{
		FolderID: uuid.New(),
		Scope:    "test",
		Name:     "broken.pdf",
		Mime:     "application/pdf",
		Bytes:    []byte("%PDF"),
	})
	require.Error(t, err)

	// Background rollback must delete the generated artifact and the
	// search entry that were written before the failure.
	waitFor(t, func() bool {
		return len(store.keys()) == 0 && index.size() == 0
	})
}

func TestPrepare_reusedFileKeySkipsMainUpload(t *testing.T) {
	store := newFakeStorage()
	index := newFakeIndex()
	p := testPipeline(store, index, NoopProcessor{})
	state := &ledger{}

	key := "test/presigned-key"
	data, err := p.prepare(context.Background(), Input{
		FolderID: uuid.New(),
		Scope:    "test",
		Name:     "direct.bin",
		Mime:     "application/octet-stream",
		Bytes:    []byte("already uploaded"),
		FileKey:  &key,
	}, state, DefaultMaxUnpackIterations)
	require.NoError(t, err)

	require.Equal(t, key, data.file.FileKey)
	require.Empty(t, store.keys(), "no storage writes expected for a reused key")
	// The ledger must not record a key the pipeline did not write, or a
	// rollback would delete the presigned upload's object.
	storageKeys, _ := state.snapshot()
	require.Empty(t, storageKeys)
}

func TestPrepare_encryptedFlagFromProcessor(t *testing.T) {
	proc := processorFunc(func(_ context.Context, _ []byte, _ string, _ ProcessingConfig) (*Output, error) {
		return &Output{Encrypted: true}, nil
	})
	p := testPipeline(newFakeStorage(), newFakeIndex(), proc)

	data, err := p.prepare(context.Background(), Input{
		FolderID: uuid.New(),
		Scope:    "test",
		Name:     "locked.pdf",
		Mime:     "application/pdf",
		Bytes:    []byte("%PDF"),
	}, &ledger{}, DefaultMaxUnpackIterations)
	require.NoError(t, err)
	require.True(t, data.file.Encrypted, "expected encrypted flag from processor output")
}

func TestRollback_continuesPastFailures(t *testing.T) {
	store := newFakeStorage()
	index := newFakeIndex()
	_ = store.UploadFile(context.Background(), "a", "text/plain", []byte("a"))
	_ = store.UploadFile(context.Background(), "b", "text/plain", []byte("b"))
	_ = index.AddData(context.Background(), []search.IndexData{{ItemID: "x", Type: search.ItemFile}})

	state := &ledger{}
	state.recordStorageKey("missing") // delete of a missing key succeeds
	state.recordStorageKey("a")
	state.recordStorageKey("b")
	state.recordSearchID("x")

	rollback(context.Background(), store, index, testLogger(), state)

	require.Empty(t, store.keys(), "expected all objects removed")
	require.Zero(t, index.size(), "expected search entry removed")
}

func testLogger() *zap.Logger { return zap.NewNop() }
