// Copyright 2025 Compliance IQ
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// Metadata field names as they appear in validation reports.
const (
	FieldChunkID          = "chunkId"
	FieldSourceID         = "sourceId"
	FieldSourceType       = "sourceType"
	FieldJurisdictionCode = "jurisdictionCode"
	FieldText             = "text"
	FieldCitation         = "citation"
	FieldIndexedAt        = "indexedAt"
	FieldTitle            = "title"
	FieldCategory         = "category"
	FieldLastUpdated      = "lastUpdated"
)

// MetadataValidation is the outcome of validating a single chunk's metadata.
type MetadataValidation struct {
	Valid           bool
	MissingRequired []string
	Warnings        []string
}

// ValidateChunkMetadata checks a chunk's metadata for completeness.
//
/// Validation rules:
//   - Required fields: ChunkID, SourceID, SourceType, JurisdictionCode,
//     Text, Citation, IndexedAt. An empty string or zero value counts
//     as missing.
//   - Optional fields (Title, Category, LastUpdated) never affect
//     validity; their absence produces non-fatal warnings.
//
// NOT validated (populated by processors):
//   - Vector and TokenCount (can be empty until the embedding step runs)
//   - Id (derived from content)
func ValidateChunkMetadata(chunk *Chunk) MetadataValidation {
	result := MetadataValidation{Valid: true}
	if chunk == nil {
		result.Valid = false
		result.MissingRequired = requiredFields()
		return result
	}

	if chunk.ChunkID == "" {
		result.MissingRequired = append(result.MissingRequired, FieldChunkID)
	}
	if chunk.SourceID == "" {
		result.MissingRequired = append(result.MissingRequired, FieldSourceID)
	}
	if chunk.SourceType.String() == "" {
		result.MissingRequired = append(result.MissingRequired, FieldSourceType)
	}
	if chunk.JurisdictionCode == "" {
		result.MissingRequired = append(result.MissingRequired, FieldJurisdictionCode)
	}
	if chunk.Text == "" {
		result.MissingRequired = append(result.MissingRequired, FieldText)
	}
	if chunk.Citation == "" {
		result.MissingRequired = append(result.MissingRequired, FieldCitation)
	}
	if chunk.IndexedAt.IsZero() {
		result.MissingRequired = append(result.MissingRequired, FieldIndexedAt)
	}

	if chunk.Title == "" {
		result.Warnings = append(result.Warnings, "missing optional field: "+FieldTitle)
	}
	if chunk.Category == "" {
		result.Warnings = append(result.Warnings, "missing optional field: "+FieldCategory)
	}
	if chunk.LastUpdated.IsZero() {
		result.Warnings = append(result.Warnings, "missing optional field: "+FieldLastUpdated)
	}

	result.Valid = len(result.MissingRequired) == 0
	return result
}

func requiredFields() []string {
	return []string{
		FieldChunkID, FieldSourceID, FieldSourceType,
		FieldJurisdictionCode, FieldText, FieldCitation, FieldIndexedAt,
	}
}

// CompletenessCounts holds raw populated counts for each optional
/// metadata field. Counts, not percentages: callers divide by the
// chunk total themselves.
type CompletenessCounts struct {
	Title       int
	Category    int
	LastUpdated int
}

// MetadataCompleteness counts how many chunks have each optional field populated.
func MetadataCompleteness(chunks []*Chunk) CompletenessCounts {
	var counts CompletenessCounts
	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.Title != "" {
			counts.Title++
		}
		if chunk.Category != "" {
			counts.Category++
		}
		if !chunk.LastUpdated.IsZero() {
			counts.LastUpdated++
		}
	}
	return counts
}

// CitationCoverageReport summarizes citation presence across a chunk collection.
type CitationCoverageReport struct {
	TotalChunks      int
	WithCitation     int
	CoveragePercent  float64
	MissingCitations []string
}

// CitationCoverage reports how many chunks carry a non-empty citation.
// Coverage is 0 for an empty input. Chunks missing a citation are
// listed by ChunkID, with "unknown" as placeholder when the ChunkID
// itself is absent.
func CitationCoverage(chunks []*Chunk) CitationCoverageReport {
	report := CitationCoverageReport{TotalChunks: len(chunks)}
	for _, chunk := range chunks {
		if chunk != nil && chunk.Citation != "" {
			report.WithCitation++
			continue
		}
		id := "unknown"
		if chunk != nil && chunk.ChunkID != "" {
			id = chunk.ChunkID
		}
		report.MissingCitations = append(report.MissingCitations, id)
	}
	if report.TotalChunks > 0 {
		report.CoveragePercent = float64(report.WithCitation) / float64(report.TotalChunks) * 100.0
	}
	return report
}

// InvalidChunk identifies a chunk that failed metadata validation,
// with one issue string per missing required field.
type InvalidChunk struct {
	ChunkID string
	Issues  []string
}

// ChunkValidationReport summarizes metadata validation over a chunk collection.
type ChunkValidationReport struct {
	TotalChunks   int
	ValidChunks   int
	InvalidChunks []InvalidChunk
}

// ValidateChunks validates every chunk's metadata and collects per-chunk issues.
func ValidateChunks(chunks []*Chunk) ChunkValidationReport {
	report := ChunkValidationReport{TotalChunks: len(chunks)}
	for _, chunk := range chunks {
		validation := ValidateChunkMetadata(chunk)
		if validation.Valid {
			report.ValidChunks++
			continue
		}

		id := "unknown"
		if chunk != nil && chunk.ChunkID != "" {
			id = chunk.ChunkID
		}
		invalid := InvalidChunk{ChunkID: id}
		for _, field := range validation.MissingRequired {
			invalid.Issues = append(invalid.Issues, fmt.Sprintf("Missing required field: %s", field))
		}
		report.InvalidChunks = append(report.InvalidChunks, invalid)
	}
	return report
}

// SourceTypeDistribution counts chunks per source type.
// Chunks with an unrecognized source type are silently ignored.
func SourceTypeDistribution(chunks []*Chunk) map[SourceType]int {
	counts := make(map[SourceType]int)
	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.SourceType.String() == "" {
			continue
		}
		counts[chunk.SourceType]++
	}
	return counts
}
