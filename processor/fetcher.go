package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nmogil/compliance-iq-sub003/batch"
	"github.com/nmogil/compliance-iq-sub003/core"
)

// Fetcher supplies the source regulation documents for a jurisdiction.
// How documents are obtained (scraping, APIs, bulk exports) is outside
// this module; implementations only need to hand back parsed documents.
type Fetcher interface {
	FetchDocuments(ctx context.Context, params batch.ChildParams) ([]*core.Document, error)
}

// DirFetcher reads documents from a directory tree, one subdirectory
// per county code, one JSON file per document. Used for seeding local
// databases and for exercising the pipeline without a live source.
type DirFetcher struct {
	root string
}

// NewDirFetcher creates a fetcher rooted at the given directory.
func NewDirFetcher(root string) *DirFetcher {
	return &DirFetcher{root: root}
}

// documentFile is the on-disk JSON shape of one regulation document.
type documentFile struct {
	SourceID    string    `json:"sourceId"`
	SourceType  string    `json:"sourceType"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Citation    string    `json:"citation"`
	Text        string    `json:"text"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// FetchDocuments reads every *.json file under <root>/<countyCode>/.
// A county directory that does not exist yields no documents, not an
// error, so batch runs can include counties that have not been seeded.
func (f *DirFetcher) FetchDocuments(_ context.Context, params batch.ChildParams) ([]*core.Document, error) {
	dir := filepath.Join(f.root, params.CountyCode)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory %s: %w", dir, err)
	}

	var docs []*core.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", path, err)
		}

		var file documentFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
		}

		sourceType := core.SourceTypeCounty
		if file.SourceType != "" {
			parsed, ok := core.ParseSourceType(file.SourceType)
			if !ok {
				return nil, fmt.Errorf("document %s: %w: %q", path, core.ErrInvalidSourceType, file.SourceType)
			}
			sourceType = parsed
		}

		sourceID := file.SourceID
		if sourceID == "" {
			sourceID = strings.TrimSuffix(entry.Name(), ".json")
		}

		docs = append(docs, &core.Document{
			SourceID:         sourceID,
			SourceType:       sourceType,
			JurisdictionCode: params.CountyCode,
			Title:            file.Title,
			Category:         file.Category,
			Citation:         file.Citation,
			Text:             file.Text,
			LastUpdated:      file.LastUpdated,
		})
	}
	return docs, nil
}
