package rag

import (
	"fmt"
	"strconv"

	"cat-backend/internal/vectorstore"
)

// Payload keys of indexed documents.
const (
	payloadContent  = "content"
	payloadSiteName = "site_name"
	payloadType     = "type"
	payloadName     = "name"
	payloadSize     = "size"
	payloadLink     = "link"
)

// Metadata describes where a retrieved document came from.
type Metadata struct {
	SiteName string `json:"site_name,omitempty"`
	Type     string `json:"type,omitempty"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Link     string `json:"link,omitempty"`
	// Distance is the cosine distance to the query (1 - similarity score).
	Distance float64 `json:"distance"`
}

// IsZero reports whether no descriptive field is set.
func (m Metadata) IsZero() bool {
	return m.SiteName == "" && m.Type == "" && m.Name == "" && m.Size == 0 && m.Link == ""
}

// Document is a retrieved text snippet with its metadata.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

func documentFromResult(r vectorstore.SearchResult) Document {
	return Document{
		Content: payloadString(r.Meta, payloadContent),
		Metadata: Metadata{
			SiteName: payloadString(r.Meta, payloadSiteName),
			Type:     payloadString(r.Meta, payloadType),
			Name:     payloadString(r.Meta, payloadName),
			Size:     payloadInt(r.Meta, payloadSize),
			Link:     payloadString(r.Meta, payloadLink),
			Distance: 1 - float64(r.Score),
		},
	}
}

func payloadString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func payloadInt(meta map[string]any, key string) int64 {
	switch v := meta[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
