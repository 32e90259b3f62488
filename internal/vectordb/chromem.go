package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/sitechat/internal/embeddings"
)

const (
	// upsertBatchSize bounds how many documents go into one chromem call.
	upsertBatchSize = 100

	// collectionPrefix namespaces our collections inside the chromem DB so
	// an exported file can be told apart from unrelated data.
	collectionPrefix = "ns-"
)

// ChromemStore implements Store using chromem-go, with one collection per
// namespace. Collections are created lazily and idempotently on first write.
type ChromemStore struct {
	mu        sync.RWMutex
	db        *chromem.DB
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore. The embedder is used
// to embed query text at search time; ingested records carry precomputed
// vectors from the same model.
func NewChromemStore(embedder embeddings.Embedder) *ChromemStore {
	return &ChromemStore{
		db:        chromem.NewDB(),
		embedder:  embedder,
		embedFunc: embeddings.ToChromemFunc(embedder),
	}
}

func collectionName(namespace string) string {
	return collectionPrefix + namespace
}

// collection returns the namespace's collection, creating it if create is
// set. Returns nil when the namespace does not exist and create is false.
func (s *ChromemStore) collection(namespace string, create bool) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := collectionName(namespace)
	if col := s.db.GetCollection(name, s.embedFunc); col != nil {
		return col, nil
	}
	if !create {
		return nil, nil
	}
	col, err := s.db.GetOrCreateCollection(name, nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection for namespace %q: %w", namespace, err)
	}
	return col, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	col, err := s.collection(namespace, true)
	if err != nil {
		return err
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := make([]chromem.Document, 0, end-start)
		for _, rec := range records[start:end] {
			batch = append(batch, chromem.Document{
				ID:        rec.ID,
				Content:   rec.Text,
				Embedding: rec.Vector,
				Metadata:  metadataToMap(rec.Metadata),
			})
		}
		if err := col.AddDocuments(ctx, batch, 1); err != nil {
			return fmt.Errorf("upsert batch %d-%d in namespace %q: %w", start, end-1, namespace, err)
		}
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, namespace, query string, topK int, filter *Filter) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	col, err := s.collection(namespace, false)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nil, nil
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.Query(ctx, query, topK, buildWhereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("query namespace %q: %w", namespace, err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:       r.ID,
			Score:    r.Similarity,
			Text:     r.Content,
			Metadata: mapToMetadata(r.Metadata),
		}
	}
	return matches, nil
}

func (s *ChromemStore) DeleteOne(ctx context.Context, namespace, id string) error {
	return s.DeleteMany(ctx, namespace, []string{id})
}

func (s *ChromemStore) DeleteMany(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := s.collection(namespace, false)
	if err != nil || col == nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete %d records from namespace %q: %w", len(ids), namespace, err)
	}
	return nil
}

func (s *ChromemStore) DeleteBySource(ctx context.Context, namespace, sourceURL string) error {
	col, err := s.collection(namespace, false)
	if err != nil || col == nil {
		return err
	}
	where := map[string]string{"source_url": sourceURL}
	if err := col.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("delete by source %q in namespace %q: %w", sourceURL, namespace, err)
	}
	return nil
}

func (s *ChromemStore) DeleteNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(collectionName(namespace)); err != nil {
		return fmt.Errorf("delete namespace %q: %w", namespace, err)
	}
	return nil
}

func (s *ChromemStore) Count(namespace string) int {
	col, err := s.collection(namespace, false)
	if err != nil || col == nil {
		return 0
	}
	return col.Count()
}

func (s *ChromemStore) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.db.ListCollections() {
		if strings.HasPrefix(name, collectionPrefix) {
			names = append(names, strings.TrimPrefix(name, collectionPrefix))
		}
	}
	sort.Strings(names)
	return names
}

func (s *ChromemStore) Persist(_ context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/chromem.gob.gz", true, "")
}

func (s *ChromemStore) Load(_ context.Context, dir string) error {
	if err := s.db.ImportFromFile(dir+"/chromem.gob.gz", ""); err != nil {
		return fmt.Errorf("import vector store: %w", err)
	}
	return nil
}

// metadataToMap converts Metadata to a flat map[string]string for chromem.
func metadataToMap(m Metadata) map[string]string {
	return map[string]string{
		"source_url":   m.SourceURL,
		"title":        m.Title,
		"content_hash": m.ContentHash,
		"chunk_index":  strconv.Itoa(m.ChunkIndex),
		"total_chunks": strconv.Itoa(m.TotalChunks),
		"updated_at":   m.UpdatedAt.Format(time.RFC3339),
	}
}

// mapToMetadata converts a flat map[string]string back to Metadata.
func mapToMetadata(m map[string]string) Metadata {
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])
	totalChunks, _ := strconv.Atoi(m["total_chunks"])
	updatedAt, _ := time.Parse(time.RFC3339, m["updated_at"])

	return Metadata{
		SourceURL:   m["source_url"],
		Title:       m["title"],
		ContentHash: m["content_hash"],
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		UpdatedAt:   updatedAt,
	}
}

// buildWhereClause converts a Filter to a chromem where clause.
func buildWhereClause(filter *Filter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.SourceURL != nil {
		where["source_url"] = *filter.SourceURL
	}
	if filter.ContentHash != nil {
		where["content_hash"] = *filter.ContentHash
	}
	if filter.Title != nil {
		where["title"] = *filter.Title
	}

	if len(where) == 0 {
		return nil
	}
	return where
}
