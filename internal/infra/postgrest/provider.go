package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

// Client implements port.DataProvider (mandatory surface) plus the optional
// port.RawQuerier escape hatch. It does not implement port.ChangeStreamer;
// callers probing for a change feed get a clean miss.
var (
	_ port.DataProvider = (*Client)(nil)
	_ port.RawQuerier   = (*Client)(nil)
)

// Create inserts one entity and returns the stored representation.
func (c *Client) Create(ctx context.Context, collection string, entity port.Record) (port.Record, error) {
	raw, err := c.do(ctx, http.MethodPost, collection, entity)
	if err != nil {
		return nil, err
	}
	return firstRecord(raw)
}

// GetByID fetches one entity by primary key.
func (c *Client) GetByID(ctx context.Context, collection, id string) (port.Record, error) {
	path := fmt.Sprintf("%s?id=eq.%s&limit=1", collection, url.QueryEscape(id))
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	rec, err := firstRecord(raw)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &domain.ErrNotFound{Resource: collection, ID: id}
	}
	return rec, nil
}

// UpdateFields patches specific fields of one entity.
func (c *Client) UpdateFields(ctx context.Context, collection, id string, fields port.Record) error {
	path := fmt.Sprintf("%s?id=eq.%s", collection, url.QueryEscape(id))
	_, err := c.do(ctx, http.MethodPatch, path, fields)
	return err
}

// Delete removes one entity by primary key.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	path := fmt.Sprintf("%s?id=eq.%s", collection, url.QueryEscape(id))
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// DeleteMany removes a set of entities in one call.
func (c *Client) DeleteMany(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	path := fmt.Sprintf("%s?id=in.(%s)", collection, strings.Join(ids, ","))
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// Query runs a filtered, sorted, paged read.
func (c *Client) Query(ctx context.Context, collection string, filters []port.Filter, sort []port.Sort, page port.Page) ([]port.Record, error) {
	params, err := encodeFilters(filters)
	if err != nil {
		return nil, err
	}
	for _, s := range sort {
		dir := "asc"
		if s.Descending {
			dir = "desc"
		}
		params = append(params, fmt.Sprintf("order=%s.%s", s.Field, dir))
	}
	if page.Limit > 0 {
		params = append(params, fmt.Sprintf("limit=%d", page.Limit))
	}
	if page.Offset > 0 {
		params = append(params, fmt.Sprintf("offset=%d", page.Offset))
	}

	path := collection
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

// Count returns the number of entities matching the filters.
func (c *Client) Count(ctx context.Context, collection string, filters []port.Filter) (int, error) {
	recs, err := c.Query(ctx, collection, filters, nil, port.Page{})
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// ExecBatch executes all operations atomically through the exec_batch RPC,
// which wraps them in a single database transaction. The batch is the unit
// of atomicity for paired operations (transfer creation and removal).
func (c *Client) ExecBatch(ctx context.Context, ops []port.BatchOp) error {
	if len(ops) == 0 {
		return nil
	}
	payload := make([]map[string]any, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case port.BatchInsert, port.BatchUpdate, port.BatchDelete:
		default:
			return &domain.ErrUnsupportedOperation{Operation: string(op.Kind)}
		}
		payload = append(payload, map[string]any{
			"kind":       string(op.Kind),
			"collection": op.Collection,
			"id":         op.ID,
			"entity":     op.Entity,
		})
	}
	_, err := c.do(ctx, http.MethodPost, "rpc/exec_batch", map[string]any{"ops": payload})
	return err
}

// RawQuery is the optional escape hatch for reads the filter grammar cannot
// express. It goes through the raw_query RPC.
func (c *Client) RawQuery(ctx context.Context, query string, args ...any) ([]port.Record, error) {
	raw, err := c.do(ctx, http.MethodPost, "rpc/raw_query", map[string]any{
		"query": query,
		"args":  args,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

// encodeFilters translates generic filters to PostgREST query params. An
// operator outside the known set surfaces unchanged as
// ErrUnsupportedOperation.
func encodeFilters(filters []port.Filter) ([]string, error) {
	params := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Op {
		case port.OpEq, port.OpNeq, port.OpLt, port.OpLte, port.OpGt, port.OpGte:
			params = append(params, fmt.Sprintf("%s=%s.%v", f.Field, f.Op, f.Value))
		case port.OpIn:
			vals, ok := f.Value.([]string)
			if !ok {
				return nil, &domain.ErrInvalidInput{Field: f.Field, Message: "in filter requires a string slice"}
			}
			params = append(params, fmt.Sprintf("%s=in.(%s)", f.Field, strings.Join(vals, ",")))
		case port.OpBetween:
			params = append(params,
				fmt.Sprintf("%s=gte.%v", f.Field, f.Value),
				fmt.Sprintf("%s=lte.%v", f.Field, f.ValueEnd),
			)
		case port.OpIsNull:
			params = append(params, fmt.Sprintf("%s=is.null", f.Field))
		default:
			return nil, &domain.ErrUnsupportedOperation{Operation: string(f.Op)}
		}
	}
	return params, nil
}

func decodeRecords(raw []byte) ([]port.Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var recs []port.Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		// Single-object responses come back unwrapped.
		var one port.Record
		if err2 := json.Unmarshal(raw, &one); err2 != nil {
			return nil, &domain.ErrExternalService{Service: "postgrest", Err: err}
		}
		return []port.Record{one}, nil
	}
	return recs, nil
}

func firstRecord(raw []byte) (port.Record, error) {
	recs, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}
