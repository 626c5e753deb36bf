package port

import "docrag/internal/domain"

// Extractor turns a document on disk into normalized text.
type Extractor interface {
	Extract(doc domain.Document) (string, error)
}
