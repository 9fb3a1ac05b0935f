// Package processor implements the per-county processing unit: fetch
// regulation documents, chunk them, embed the chunks, and upsert the
// vectors into storage. It also provides LocalRunner, an in-process
// batch.Runner that executes processing units on a worker pool.
package processor
