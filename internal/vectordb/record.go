package vectordb

import "time"

// Record is one stored vector plus the chunk text it was generated from.
type Record struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata Metadata
}

// Metadata holds structured information about a record's source chunk.
type Metadata struct {
	SourceURL   string
	Title       string
	ContentHash string
	ChunkIndex  int
	TotalChunks int
	UpdatedAt   time.Time
}

// Match pairs a record with its similarity score for one query.
type Match struct {
	ID       string
	Score    float32
	Text     string
	Metadata Metadata
}

// Filter narrows query results by metadata equality before top-K truncation.
type Filter struct {
	SourceURL   *string
	ContentHash *string
	Title       *string
}
