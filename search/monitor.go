package search

import "github.com/nmogil/compliance-iq-sub003/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query Query)
	AfterSemanticSearch(ids []uint64)
	AfterJurisdictionFilter(ids []uint64)
	PhraseMatchHit(chunk *core.Chunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                        {}
func (n *noopMonitor) AfterSemanticSearch(_ []uint64)       {}
func (n *noopMonitor) AfterJurisdictionFilter(_ []uint64)   {}
func (n *noopMonitor) PhraseMatchHit(_ *core.Chunk)         {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)        {}
