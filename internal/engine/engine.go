// Package engine wraps Bleve v2 as the full-text index engine behind one
// search module. Tokenization, scoring, and on-disk segment layout all
// belong to Bleve; this package only opens indices, builds queries, runs
// searches, and fetches stored fields.
package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"

	ferrors "github.com/offlinekit/fedsearch/internal/errors"
)

// Searchable field names fixed by the module schema contract.
const (
	FieldTitle   = "title"
	FieldSummary = "summary"
	FieldBody    = "body"
)

// readerLockName is the lock file taken shared by readers inside the index
// directory. An external index builder takes the exclusive side before
// swapping segments.
const readerLockName = ".reader.lock"

// Document is one indexable record. Title and Summary are stored for result
// display; Body is indexed only through the default mapping.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Body    string `json:"body"`
}

// Hit is one search match with its stored display fields.
type Hit struct {
	DocID   string
	Score   float64
	Title   string
	Summary string
}

// Index wraps one opened Bleve index. The read-view (the underlying
// bleve.Index) is swappable via Refresh; everything else is fixed at Open.
type Index struct {
	mu     sync.RWMutex
	idx    bleve.Index
	path   string // empty for in-memory indices
	lock   *flock.Flock
	closed bool
}

// validateIntegrity checks a Bleve index directory before opening.
// Returns nil if the directory looks like a complete index.
func validateIntegrity(path string) error {
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return ferrors.Newf(ferrors.ErrCodeCorruptIndex, "index_meta.json missing at %s", path)
	}
	if err != nil {
		return ferrors.Wrap(ferrors.ErrCodeCorruptIndex, err)
	}
	if info.Size() == 0 {
		return ferrors.Newf(ferrors.ErrCodeCorruptIndex, "index_meta.json is empty at %s", path)
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrCodeCorruptIndex, err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeCorruptIndex, err)
	}

	return nil
}

// validateMapping rejects an index whose explicit (non-dynamic) mapping
// lacks the required searchable fields. Dynamic mappings accept any field
// set and pass.
func validateMapping(m mapping.IndexMapping) error {
	impl, ok := m.(*mapping.IndexMappingImpl)
	if !ok || impl.DefaultMapping == nil || impl.DefaultMapping.Dynamic {
		return nil
	}
	for _, field := range []string{FieldTitle, FieldSummary} {
		if _, ok := impl.DefaultMapping.Properties[field]; !ok {
			return ferrors.Newf(ferrors.ErrCodeOpenFailed, "index mapping lacks required field %q", field)
		}
	}
	return nil
}

// Open opens an existing on-disk Bleve index and takes a shared reader lock
// on its directory.
func Open(path string) (*Index, error) {
	if err := validateIntegrity(path); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(path, readerLockName))
	held, err := lock.TryRLock()
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeOpenFailed, err)
	}
	if !held {
		return nil, ferrors.Newf(ferrors.ErrCodeOpenFailed, "index at %s is locked by a writer", path)
	}

	idx, err := bleve.Open(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, ferrors.Wrap(ferrors.ErrCodeOpenFailed, err)
	}
	if err := validateMapping(idx.Mapping()); err != nil {
		_ = idx.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &Index{idx: idx, path: path, lock: lock}, nil
}

// OpenMem creates an empty in-memory index with the module field mapping.
// Used by tests and tooling; the coordinator only consumes built indices.
func OpenMem() (*Index, error) {
	idx, err := bleve.NewMemOnly(NewIndexMapping())
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeOpenFailed, err)
	}
	return &Index{idx: idx}, nil
}

// NewIndexMapping returns the Bleve mapping for module documents: title,
// summary, and body as analyzed text fields, title and summary stored.
func NewIndexMapping() mapping.IndexMapping {
	title := bleve.NewTextFieldMapping()
	summary := bleve.NewTextFieldMapping()
	body := bleve.NewTextFieldMapping()
	body.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt(FieldTitle, title)
	doc.AddFieldMappingsAt(FieldSummary, summary)
	doc.AddFieldMappingsAt(FieldBody, body)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// IndexBatch adds documents to the index in one batch.
func (x *Index) IndexBatch(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return ferrors.Newf(ferrors.ErrCodeInternal, "index is closed")
	}

	batch := x.idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.ID, doc); err != nil {
			return ferrors.Wrap(ferrors.ErrCodeInternal, err)
		}
	}
	if err := x.idx.Batch(batch); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInternal, err)
	}
	return nil
}

// BuildQuery parses text with Bleve's query-string syntax. Unfielded terms
// search all indexed fields; syntax errors surface as QueryParseFailed.
func (x *Index) BuildQuery(text string) (query.Query, error) {
	q := bleve.NewQueryStringQuery(text)
	parsed, err := q.Parse()
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeQueryParseFailed, err)
	}
	return parsed, nil
}

// Search executes a query bounded by limit, returning hits with their
// stored title and summary fields.
func (x *Index) Search(ctx context.Context, q query.Query, limit int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, ferrors.Newf(ferrors.ErrCodeSearchFailed, "index is closed")
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{FieldTitle, FieldSummary}

	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeSearchFailed, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			DocID:   h.ID,
			Score:   h.Score,
			Title:   stringField(h.Fields, FieldTitle),
			Summary: stringField(h.Fields, FieldSummary),
		})
	}
	return hits, nil
}

// DocCount reports the number of documents in the current read-view.
func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return 0, ferrors.Newf(ferrors.ErrCodeInternal, "index is closed")
	}
	count, err := x.idx.DocCount()
	if err != nil {
		return 0, ferrors.Wrap(ferrors.ErrCodeInternal, err)
	}
	return count, nil
}

// Refresh reopens the on-disk index so newly committed segments become
// visible. In-flight searches hold the read lock and complete against the
// old view before the swap. Bleve holds an exclusive file lock per index
// directory, so the old handle must close before the new one opens; the
// swap happens entirely under the write lock, so readers never observe a
// closed index. No-op for in-memory indices.
func (x *Index) Refresh() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return ferrors.Newf(ferrors.ErrCodeReloadFailed, "index is closed")
	}
	if x.path == "" {
		return nil
	}

	if err := validateIntegrity(x.path); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeReloadFailed, err)
	}
	if err := x.idx.Close(); err != nil {
		x.teardownLocked()
		return ferrors.Wrap(ferrors.ErrCodeReloadFailed, err)
	}

	fresh, err := bleve.Open(x.path)
	if err != nil {
		x.teardownLocked()
		return ferrors.Wrap(ferrors.ErrCodeReloadFailed, err)
	}
	x.idx = fresh
	return nil
}

// teardownLocked marks the index closed and drops the reader lock so the
// index directory is not pinned by a dead handle. Caller holds mu.
func (x *Index) teardownLocked() {
	x.closed = true
	if x.lock != nil {
		_ = x.lock.Unlock()
		x.lock = nil
	}
}

// Close releases the index and the reader lock. Safe to call once per Index;
// subsequent operations fail.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true

	var err error
	if x.idx != nil {
		err = x.idx.Close()
	}
	if x.lock != nil {
		_ = x.lock.Unlock()
		x.lock = nil
	}
	return err
}

// Path returns the on-disk location, empty for in-memory indices.
func (x *Index) Path() string {
	return x.path
}

func stringField(fields map[string]interface{}, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []interface{}:
		parts := make([]string, 0, len(s))
		for _, p := range s {
			if str, ok := p.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
