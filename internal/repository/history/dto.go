package history

import (
	"fmt"
	"strconv"
	"time"

	domhist "github.com/travellens-cloud/travellens/internal/domain/history"
)

// entryToHash converts a domain Entry to a map for HSET.
func entryToHash(e domhist.Entry) map[string]string {
	m := map[string]string{
		"id":          e.ID,
		"owner_id":    e.OwnerID,
		"name":        e.Name,
		"wiki_link":   e.WikiLink,
		"image_url":   e.ImageURL,
		"summary":     e.Summary,
		"coordinates": e.Coordinates,
		"created_at":  strconv.FormatInt(e.CreatedAt.UnixMilli(), 10),
	}
	if e.Confidence != nil {
		m["confidence"] = strconv.FormatFloat(*e.Confidence, 'f', -1, 64)
	}
	return m
}

// entryFromHash hydrates a domain Entry from an HGETALL result map.
func entryFromHash(m map[string]string) (domhist.Entry, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domhist.Entry{}, fmt.Errorf("invalid created_at %q: %w", m["created_at"], err)
	}

	e := domhist.Entry{
		ID:          m["id"],
		OwnerID:     m["owner_id"],
		Name:        m["name"],
		WikiLink:    m["wiki_link"],
		ImageURL:    m["image_url"],
		Summary:     m["summary"],
		Coordinates: m["coordinates"],
		CreatedAt:   time.UnixMilli(createdAt).UTC(),
	}

	if confStr, ok := m["confidence"]; ok && confStr != "" {
		if conf, err := strconv.ParseFloat(confStr, 64); err == nil {
			e.Confidence = &conf
		}
	}

	return e, nil
}
