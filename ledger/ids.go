package ledger

import "github.com/google/uuid"

// newID generates a document id. Stores call this when inserting a
// document whose ID is empty; ids are never reused.
func newID() string { return uuid.NewString() }

// NewDocumentID is the id generator store implementations use.
func NewDocumentID() string { return newID() }
