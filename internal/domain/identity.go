package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// idSeparator joins the identity fields before hashing.
const idSeparator = "::"

// MakeProductID derives the content-addressed document id of a product.
// Only Brand, Name and Label take part; each is trimmed and lowercased, so
// re-uploading the same product with a new price or rank keeps its id.
func MakeProductID(record ProductRecord) string {
	parts := []string{
		normalizeIdentityField(record[FieldBrand]),
		normalizeIdentityField(record[FieldName]),
		normalizeIdentityField(record[FieldLabel]),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, idSeparator)))
	return hex.EncodeToString(sum[:])
}

func normalizeIdentityField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
