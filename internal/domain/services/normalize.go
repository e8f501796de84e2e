// Package services contains domain business logic.
package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ersonp/pagewatch/internal/domain/entities"
)

// DefaultMaxBytes is the document size cap applied before hashing.
const DefaultMaxBytes = 1_500_000

// shortHashLen is the number of hex characters kept by ShortHash.
const shortHashLen = 12

// Normalize joins block texts into one canonical document.
// Documents larger than maxBytes are cut to the first maxBytes/2 characters.
func Normalize(blocks []entities.ContentBlock, maxBytes int) string {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	texts := make([]string, len(blocks))
	for i := range blocks {
		texts[i] = blocks[i].Text
	}
	doc := CollapseWhitespace(strings.Join(texts, "\n\n"))

	if len(doc) > maxBytes {
		doc = truncateRunes(doc, maxBytes/2)
	}
	return doc
}

// CollapseWhitespace replaces every whitespace run with one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Digest returns the lowercase hex SHA-256 of doc.
func Digest(doc string) string {
	sum := sha256.Sum256([]byte(doc))
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first 12 hex characters of Digest(s).
func ShortHash(s string) string {
	return Digest(s)[:shortHashLen]
}

// shortDigest cuts an existing digest down to correlation-key length.
func shortDigest(digest string) string {
	if len(digest) <= shortHashLen {
		return digest
	}
	return digest[:shortHashLen]
}
