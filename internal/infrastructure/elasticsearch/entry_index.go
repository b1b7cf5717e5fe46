// Package elasticsearch mirrors diary entries into a search index.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
	"github.com/oksasatya/go-ddd-diary/pkg/sanitize"
)

const requestTimeout = 3 * time.Second

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "user_id":      {"type": "keyword"},
      "author_email": {"type": "keyword"},
      "content":      {"type": "text", "index": false},
      "text":         {"type": "text"},
      "created_at":   {"type": "date"},
      "updated_at":   {"type": "date"}
    }
  }
}`

type EntryIndex struct {
	es     *es.Client
	index  string
	logger *logrus.Logger
}

func NewEntryIndex(client *es.Client, index string, logger *logrus.Logger) *EntryIndex {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &EntryIndex{es: client, index: index, logger: logger}
}

// entryDoc is the indexed form of an entry. Text is the markup-free content
// the full-text query runs against.
type entryDoc struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Content     string    `json:"content"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func docFrom(e entity.Entry) entryDoc {
	return entryDoc{
		ID:          e.ID,
		UserID:      e.UserID,
		AuthorEmail: e.AuthorEmail,
		Content:     e.Content,
		Text:        sanitize.Text(e.Content),
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func (d entryDoc) entry() entity.Entry {
	return entity.Entry{
		ID:          d.ID,
		UserID:      d.UserID,
		AuthorEmail: d.AuthorEmail,
		Content:     d.Content,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (x *EntryIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Indices.Exists([]string{x.index}, x.es.Indices.Exists.WithContext(c))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	res, err = x.es.Indices.Create(x.index,
		x.es.Indices.Create.WithContext(c),
		x.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.index, res.Status())
	}
	x.logger.WithField("index", x.index).Info("search index created")
	return nil
}

func (x *EntryIndex) Index(ctx context.Context, e entity.Entry) error {
	b, err := json.Marshal(docFrom(e))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: e.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index entry %s: %s", e.ID, res.Status())
	}
	return nil
}

// Remove deletes the entry's document. A missing document is not an error.
func (x *EntryIndex) Remove(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove entry %s: %s", id, res.Status())
	}
	return nil
}

// Search runs a full-text match over entry text and author. A non-empty
// ownerID restricts hits to that user's entries.
func (x *EntryIndex) Search(ctx context.Context, query, ownerID string, size int) ([]entity.Entry, error) {
	b, err := json.Marshal(searchBody(query, ownerID, size))
	if err != nil {
		return nil, err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search entries: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string   `json:"_id"`
				Source entryDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]entity.Entry, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source.entry())
	}
	return out, nil
}

func searchBody(query, ownerID string, size int) map[string]any {
	boolQuery := map[string]any{
		"must": []any{
			map[string]any{
				"multi_match": map[string]any{
					"query":  query,
					"fields": []string{"text", "author_email"},
				},
			},
		},
	}
	if ownerID != "" {
		boolQuery["filter"] = []any{
			map[string]any{"term": map[string]any{"user_id": ownerID}},
		}
	}
	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"size":  size,
		"sort": []any{
			map[string]any{"_score": "desc"},
			map[string]any{"created_at": "desc"},
		},
	}
}
