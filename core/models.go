package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so identical text
// always maps to the same identifier, making upserts idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceType identifies the level of government a regulation comes from.
type SourceType int

const (
	// SourceTypeFederal represents federal regulations.
	SourceTypeFederal SourceType = iota + 1
	// SourceTypeState represents state statutes and regulations.
	SourceTypeState
	// SourceTypeCounty represents county ordinances.
	SourceTypeCounty
	// SourceTypeMunicipal represents municipal codes.
	SourceTypeMunicipal
)

// String returns the wire name of the source type, or "" for unknown values.
func (s SourceType) String() string {
	switch s {
	case SourceTypeFederal:
		return "federal"
	case SourceTypeState:
		return "state"
	case SourceTypeCounty:
		return "county"
	case SourceTypeMunicipal:
		return "municipal"
	}
	return ""
}

// ParseSourceType parses a wire name into a SourceType.
// Returns 0 and false for unrecognized names.
func ParseSourceType(name string) (SourceType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "federal":
		return SourceTypeFederal, true
	case "state":
		return SourceTypeState, true
	case "county":
		return SourceTypeCounty, true
	case "municipal":
		return SourceTypeMunicipal, true
	}
	return 0, false
}

// Jurisdiction is a governmental entity whose regulations are ingested.
type Jurisdiction struct {
	Name    string `yaml:"name"`
	Code    string `yaml:"code"`
	Enabled bool   `yaml:"enabled"`
}

// Document is a raw source text unit as delivered by a fetcher,
// before chunking. One document typically corresponds to one
// ordinance, statute section, or code chapter.
type Document struct {
	SourceID         string
	SourceType       SourceType
	JurisdictionCode string
	Title            string
	Category         string
	Citation         string
	Text             string
	LastUpdated      time.Time
}

// Chunk is a segment of regulatory text with attached metadata,
// embedded and indexed for retrieval.
//
// Required metadata: ChunkID, SourceID, SourceType, JurisdictionCode,
// Text, Citation, IndexedAt. Optional: Title, Category, LastUpdated.
// Vector and TokenCount are populated by processors and do not affect
// metadata validity.
type Chunk struct {
	Id               ID
	ChunkID          string
	SourceID         string
	SourceType       SourceType
	JurisdictionCode string
	Title            string
	Category         string
	Citation         string
	Text             string
	TokenCount       int
	Vector           []float32
	IndexedAt        time.Time
	LastUpdated      time.Time
	InsertedAt       time.Time
	UpdatedAt        time.Time
}

// SimilarityMatch represents a chunk match from vector similarity search.
type SimilarityMatch struct {
	ChunkId ID
	Score   float32
}

// SearchResult represents a retrieval result with the full chunk and relevance score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
