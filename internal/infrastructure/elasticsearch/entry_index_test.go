package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/pkg/helpers"
)

// fakeCluster answers the few endpoints the index uses.
type fakeCluster struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.requests = append(f.requests, key)
	if f.bodies == nil {
		f.bodies = map[string]string{}
	}
	f.bodies[key] = string(body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/entries/_doc/"):
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodDelete && r.URL.Path == "/entries/_doc/gone":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	case r.Method == http.MethodDelete:
		_, _ = w.Write([]byte(`{"result":"deleted"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"e1","_source":{
			"id":"e1","user_id":"u1","author_email":"kabilan.diary@example.com",
			"content":"<p>rainy day</p>","text":"rainy day",
			"created_at":"2024-05-01T09:00:00Z","updated_at":"2024-05-01T09:00:00Z"}}]}}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unexpected"}`))
	}
}

func (f *fakeCluster) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

func newTestIndex(t *testing.T) (*EntryIndex, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)
	client, err := helpers.NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	return NewEntryIndex(client, "entries", nil), cluster
}

func TestEntryIndex_IndexStoresPlainText(t *testing.T) {
	x, cluster := newTestIndex(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	err := x.Index(context.Background(), entity.Entry{
		ID: "e1", UserID: "u1", Content: "<p>Rainy <b>day</b></p>", CreatedAt: at, UpdatedAt: at,
	})
	require.NoError(t, err)

	var doc entryDoc
	require.NoError(t, json.Unmarshal([]byte(cluster.body("PUT /entries/_doc/e1")), &doc))
	assert.Equal(t, "Rainy day", doc.Text)
	assert.Equal(t, "<p>Rainy <b>day</b></p>", doc.Content)
	assert.Equal(t, "u1", doc.UserID)
}

func TestEntryIndex_RemoveIgnoresMissingDocument(t *testing.T) {
	x, _ := newTestIndex(t)
	assert.NoError(t, x.Remove(context.Background(), "e1"))
	assert.NoError(t, x.Remove(context.Background(), "gone"))
}

func TestEntryIndex_SearchFiltersByOwner(t *testing.T) {
	x, cluster := newTestIndex(t)

	got, err := x.Search(context.Background(), "rain", "u1", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, "kabilan.diary@example.com", got[0].AuthorEmail)
	assert.Equal(t, "<p>rainy day</p>", got[0].Content)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(cluster.body("POST /entries/_search")), &body))
	assert.EqualValues(t, 5, body["size"])
	query := body["query"].(map[string]any)["bool"].(map[string]any)
	assert.Contains(t, query, "filter")
}

func TestSearchBody_AdminHasNoOwnerFilter(t *testing.T) {
	b := searchBody("rain", "", 10)
	q := b["query"].(map[string]any)["bool"].(map[string]any)
	assert.NotContains(t, q, "filter")
	assert.Equal(t, 10, b["size"])
}
