// Package search provides semantic retrieval over indexed regulation
// chunks: embed the query, rank stored chunks by vector similarity,
// optionally restrict to a jurisdiction, and boost exact-phrase
// matches. Answer generation is out of scope; callers get ranked
// chunks with citations.
package search
