// Package memory contains the similarity-indexed Memory Pool used to enrich
// requests with relevant prior interactions. The pool stores (embedding,
// payload) pairs and answers top-K cosine similarity queries.
//
// Concurrency: structural mutations (append, evict) and snapshot capture
// happen under a short critical section; scoring runs lock-free on the
// captured snapshot so concurrent stores never stall retrieval.
package memory
