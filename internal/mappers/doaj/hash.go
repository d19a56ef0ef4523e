package doaj

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// ContentHash computes a stable hash over the article payload. Timestamps
// and the destination identifier are excluded so that two mappings of the
// same source content always hash identically, regardless of when or
// whether the document was previously synced.
func ContentHash(article *domain.Article) (string, error) {
	stripped := *article
	stripped.ID = ""
	stripped.CreatedDate = ""
	stripped.LastUpdated = ""

	// json.Marshal emits struct fields in declaration order, so the
	// encoding is deterministic for a given payload.
	data, err := json.Marshal(&stripped)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ContentHash implements the SchemaMapper port.
func (m *Mapper) ContentHash(article *domain.Article) (string, error) {
	return ContentHash(article)
}
