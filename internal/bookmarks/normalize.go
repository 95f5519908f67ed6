package bookmarks

import (
	"bytes"
	"encoding/json"

	"github.com/dealbook-dev/dealbook/internal/cli/client"
	"github.com/dealbook-dev/dealbook/internal/models"
)

// Normalize converts a backend record into a Bookmark. The backend keys
// records by "_id" and may populate user and deal as full documents.
func Normalize(r client.BookmarkRecord) models.Bookmark {
	id := r.MongoID
	if id == "" {
		id = r.ID
	}

	return models.Bookmark{
		ID:        id,
		User:      refID(r.User),
		Deal:      refID(r.Deal),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// NormalizeAll normalizes every record, skipping those without a deal.
func NormalizeAll(records []client.BookmarkRecord) []models.Bookmark {
	out := make([]models.Bookmark, 0, len(records))
	for _, r := range records {
		b := Normalize(r)
		if b.Deal == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}

// refID extracts an ID from either a JSON string or a document with _id/id.
func refID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var doc struct {
		MongoID string `json:"_id"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	if doc.MongoID != "" {
		return doc.MongoID
	}
	return doc.ID
}
