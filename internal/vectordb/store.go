package vectordb

import "context"

// Store is a namespace-partitioned vector index. A namespace corresponds to
// one bot/tenant; records in a namespace must all come from the same
// embedding model so their vectors are comparable.
type Store interface {
	// Upsert adds or overwrites records by ID in the given namespace.
	// The namespace is created on first use.
	Upsert(ctx context.Context, namespace string, records []Record) error

	// Query performs a similarity search over the namespace and returns up
	// to topK matches ordered by descending score. A nil filter matches
	// everything; an unknown namespace yields no matches, not an error.
	Query(ctx context.Context, namespace, query string, topK int, filter *Filter) ([]Match, error)

	// DeleteOne removes a single record by ID.
	DeleteOne(ctx context.Context, namespace, id string) error

	// DeleteMany removes a batch of records by ID.
	DeleteMany(ctx context.Context, namespace string, ids []string) error

	// DeleteBySource removes every record ingested from the given source URL.
	DeleteBySource(ctx context.Context, namespace, sourceURL string) error

	// DeleteNamespace removes the namespace and every record in it.
	// Irreversible; used on bot deletion and retraining resets.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Count returns the number of records in the namespace.
	Count(namespace string) int

	// Namespaces lists the namespaces currently present in the store.
	Namespaces() []string

	// Persist saves the store's data under the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error
}
