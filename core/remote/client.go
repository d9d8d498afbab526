package remote

import (
	"context"
	"fmt"

	"exercise-sync/core/gateway"
	"exercise-sync/core/record"
	"exercise-sync/core/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Endpoint paths on the remote API.
const (
	EndpointList   = "/exercises/list"
	EndpointCreate = "/exercises/create"
	EndpointUpdate = "/exercises/update"
)

// DefaultPageSize is the page size used by ListAll.
const DefaultPageSize = 100

// maxPages guards against a provider that never reports the last page.
const maxPages = 10_000

// Requester issues a single remote call. *gateway.Gateway implements it.
type Requester interface {
	Request(ctx context.Context, endpoint string, payload any) (*gateway.Response, error)
}

// Client reads and writes exercises on the remote platform.
type Client struct {
	gw       Requester
	pageSize int
	logger   *zap.Logger
}

// NewClient creates a client. pageSize <= 0 uses DefaultPageSize.
func NewClient(gw Requester, pageSize int, logger *zap.Logger) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{gw: gw, pageSize: pageSize, logger: logger}
}

type listRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// ListAll pages through every remote exercise. The remote API has no bulk export,
// so this issues one gateway call per page.
func (c *Client) ListAll(ctx context.Context) ([]record.RemoteRecord, error) {
	var all []record.RemoteRecord

	for page := 1; page <= maxPages; page++ {
		resp, err := c.gw.Request(ctx, EndpointList, listRequest{Page: page, PageSize: c.pageSize})
		if err != nil {
			return nil, fmt.Errorf("list exercises page %d: %w", page, err)
		}
		if resp.NotFound {
			break
		}

		items, hasMore, err := decodeList(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("decode exercises page %d: %w", page, err)
		}
		for _, item := range items {
			rec, ok := decodeRecord(item)
			if !ok {
				c.logger.Warn("Skipping remote exercise without id", zap.Int("page", page))
				continue
			}
			all = append(all, rec)
		}

		if len(items) == 0 || (hasMore == nil && len(items) < c.pageSize) || (hasMore != nil && !*hasMore) {
			break
		}
	}

	c.logger.Debug("Listed remote exercises", zap.Int("count", len(all)))
	return all, nil
}

// Create creates a remote exercise and returns its new external id.
func (c *Client) Create(ctx context.Context, fields record.Fields, tags []record.Tag) (string, error) {
	resp, err := c.gw.Request(ctx, EndpointCreate, buildPayload("", fields, tags))
	if err != nil {
		return "", err
	}
	if resp.NotFound {
		return "", fmt.Errorf("create exercise: endpoint %s: %w", EndpointCreate, gateway.ErrNotFound)
	}

	id, err := decodeCreatedID(resp.Data)
	if err != nil {
		return "", fmt.Errorf("create exercise: %w", err)
	}
	return id, nil
}

// Update replaces the mapped fields of an existing remote exercise.
func (c *Client) Update(ctx context.Context, externalID string, fields record.Fields, tags []record.Tag) error {
	resp, err := c.gw.Request(ctx, EndpointUpdate, buildPayload(externalID, fields, tags))
	if err != nil {
		return err
	}
	if resp.NotFound {
		return fmt.Errorf("update exercise %s: %w", externalID, gateway.ErrNotFound)
	}
	return nil
}

func buildPayload(externalID string, fields record.Fields, tags []record.Tag) map[string]any {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	if externalID != "" {
		payload["id"] = externalID
	}
	if len(tags) > 0 {
		payload["tags"] = tags
	}
	return payload
}

// listKeys are the members under which list endpoints nest their items.
var listKeys = []string{"items", "exercises", "data", "results"}

// decodeList accepts every list shape the provider is known to return. hasMore is
// nil when the response does not say whether more pages exist.
func decodeList(data json.RawMessage) ([]map[string]any, *bool, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil, nil
	}

	var arr []map[string]any
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, nil, fmt.Errorf("unexpected list shape: %w", err)
	}

	var hasMore *bool
	if raw, ok := obj["hasMore"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			hasMore = &b
		}
	}

	for _, key := range listKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		items, nestedMore, err := decodeList(raw)
		if err != nil {
			return nil, nil, err
		}
		if hasMore == nil {
			hasMore = nestedMore
		}
		return items, hasMore, nil
	}

	// A single object without a known list member is treated as a one-item page.
	var single map[string]any
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, nil, err
	}
	return []map[string]any{single}, hasMore, nil
}

// decodeRecord converts one provider object into a RemoteRecord. ok is false when
// the object carries no usable identifier.
func decodeRecord(raw map[string]any) (record.RemoteRecord, bool) {
	rec := record.RemoteRecord{Fields: record.Fields{}}

	for _, key := range []string{"id", "_id", "exerciseId", "exercise_id"} {
		if v, ok := raw[key]; ok && !utils.IsBlank(v) {
			rec.ExternalID = utils.ToString(v)
			break
		}
	}
	if rec.ExternalID == "" {
		return rec, false
	}

	for _, key := range []string{"name", "title"} {
		if v, ok := raw[key]; ok && !utils.IsBlank(v) {
			rec.Name = utils.ToString(v)
			break
		}
	}

	for k, v := range raw {
		switch k {
		case "id", "_id", "exerciseId", "exercise_id", "title":
			continue
		case "tags":
			rec.Tags = decodeTags(v)
			continue
		}
		rec.Fields[k] = v
	}
	if rec.Name != "" {
		rec.Fields["name"] = rec.Name
	}

	return rec, true
}

func decodeTags(v any) []record.Tag {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	tags := make([]record.Tag, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case map[string]any:
			name := utils.ToString(t["name"])
			if name == "" {
				continue
			}
			tags = append(tags, record.Tag{Type: utils.ToString(t["type"]), Name: name})
		case string:
			if t != "" {
				tags = append(tags, record.Tag{Name: t})
			}
		}
	}
	return tags
}

// decodeCreatedID finds the new identifier in a create response: {"id"}, a nested
// {"exercise": {"id"}}, or a bare id value.
func decodeCreatedID(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty create response")
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}

	switch t := v.(type) {
	case map[string]any:
		if nested, ok := t["exercise"].(map[string]any); ok {
			t = nested
		}
		if rec, ok := decodeRecord(t); ok {
			return rec.ExternalID, nil
		}
	case string, float64:
		if id := utils.ToString(t); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("create response carries no id")
}
