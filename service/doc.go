// Package service wires configuration, embedders, the indexer and the embedding store
// into the operations exposed by the codevec CLI.
//
// It is intended for embedding codevec capabilities into other programs
// without shelling out to the CLI.
package service
