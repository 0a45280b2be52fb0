package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
	"github.com/kirillkom/electoral-rag/internal/infrastructure/resilience"
)

const scrollPageSize = 256

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, docs []domain.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents/vectors mismatch: %d vs %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	// seq keeps insertion order recoverable; scroll returns points by id.
	base := time.Now().UnixNano()
	points := make([]point, 0, len(docs))
	for i, doc := range docs {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: vectors[i],
			Payload: map[string]any{
				"content":  doc.Content,
				"metadata": metadataOrEmpty(doc.Metadata),
				"seq":      base + int64(i),
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}, nil, "upsert")
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int, filter domain.Filter) ([]domain.Document, error) {
	if limit <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if f := buildFilter(filter); f != nil {
		reqBody["filter"] = f
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.doJSON(ctx, http.MethodPost, url, reqBody, &searchResp, "search"); err != nil {
		if isMissingCollection(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]domain.Document, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, documentFromPayload(r.Payload))
	}
	return out, nil
}

// Documents scrolls the whole collection and returns it in insertion order.
func (c *Client) Documents(ctx context.Context) ([]domain.Document, error) {
	type entry struct {
		seq int64
		doc domain.Document
	}
	var (
		entries []entry
		offset  any
	)
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, c.collection)
	for {
		reqBody := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := c.doJSON(ctx, http.MethodPost, url, reqBody, &scrollResp, "scroll"); err != nil {
			if isMissingCollection(err) {
				return nil, nil
			}
			return nil, err
		}
		for _, p := range scrollResp.Result.Points {
			entries = append(entries, entry{seq: int64Payload(p.Payload, "seq"), doc: documentFromPayload(p.Payload)})
		}
		if scrollResp.Result.NextPageOffset == nil {
			break
		}
		offset = scrollResp.Result.NextPageOffset
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]domain.Document, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.doc)
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.doJSON(ctx, http.MethodPut, url, reqBody, nil, "ensure collection")
	// 409 when the collection already exists (depends on version/config).
	if err != nil && statusOf(err) != http.StatusConflict {
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError("qdrant", operation, resp)
		}
		if out == nil {
			return nil
		}
		dec := json.NewDecoder(resp.Body)
		dec.UseNumber()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}

	if c.executor == nil {
		err = call(ctx)
	} else {
		err = c.executor.Execute(ctx, "qdrant."+strings.ReplaceAll(operation, " ", "_"), call, resilience.ClassifyHTTPError)
	}
	return resilience.WrapTemporaryIfNeeded("qdrant "+operation, err, resilience.ClassifyHTTPError)
}

func buildFilter(filter domain.Filter) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		must = append(must, map[string]any{
			"key":   "metadata." + k,
			"match": map[string]any{"value": filter[k]},
		})
	}
	return map[string]any{"must": must}
}

func documentFromPayload(payload map[string]any) domain.Document {
	doc := domain.Document{Content: getStringPayload(payload, "content")}
	if raw, ok := payload["metadata"].(map[string]any); ok {
		doc.Metadata = domain.Metadata(raw)
	}
	return doc
}

func metadataOrEmpty(m domain.Metadata) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any(m)
}

func statusOf(err error) int {
	var statusErr *resilience.HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func isMissingCollection(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func int64Payload(payload map[string]any, key string) int64 {
	n, ok := payload[key].(json.Number)
	if !ok {
		return 0
	}
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return v
}
