package zohocrm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// RecordPayload is the write envelope for insert, update and upsert calls.
//
// The vendor requires the trigger key to be present even when empty; an
// empty list suppresses default workflow triggers. A nil Trigger is sent as
// the empty list, never omitted.
type RecordPayload struct {
	Data    []Record `json:"data"`
	Trigger []string `json:"trigger"`
}

func (p *RecordPayload) normalize() error {
	if len(p.Data) == 0 {
		return errors.New("payload has no data records")
	}
	if p.Trigger == nil {
		p.Trigger = []string{}
	}
	return nil
}

// GetByID fetches a single record. Returns a NotFoundError when the module
// holds no record with that id.
func (c *Client) GetByID(ctx context.Context, module, id string) (Record, error) {
	body, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   "/" + module + "/" + id,
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		// The vendor answers 204 for unknown ids.
		return nil, &NotFoundError{Module: module, ID: id}
	}

	var envelope recordPage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FormatError{URL: module + "/" + id, Hint: err.Error()}
	}
	if len(envelope.Data) == 0 {
		return nil, &NotFoundError{Module: module, ID: id}
	}
	return envelope.Data[0], nil
}

// DeleteByID deletes one record from a module.
//
// Rejections are reportable, not exceptional: ok is true only for an HTTP
// 200, and the vendor's body is returned either way so callers can inspect
// per-record statuses (bulk-delete partial failure is common).
func (c *Client) DeleteByID(ctx context.Context, module, id string) (bool, map[string]any, error) {
	resp, body, err := c.callReportable(ctx, request{
		method: http.MethodDelete,
		path:   "/" + module,
		query:  url.Values{"ids": []string{id}},
	})
	if err != nil {
		return false, nil, err
	}
	ok := !resp.IsError() && resp.StatusCode() == http.StatusOK
	return ok, body, nil
}

// Update modifies existing records in a module via PUT. Returns the vendor's
// body with ok reporting whether the API accepted the write; validation
// rejections come back as (false, body), not as an error.
func (c *Client) Update(ctx context.Context, module string, payload RecordPayload) (bool, map[string]any, error) {
	if err := payload.normalize(); err != nil {
		return false, nil, err
	}

	resp, body, err := c.callReportable(ctx, request{
		method: http.MethodPut,
		path:   "/" + module,
		body:   payload,
	})
	if err != nil {
		return false, nil, err
	}
	return !resp.IsError(), body, nil
}

// Upsert inserts or updates one record.
//
// The vendor has no conditional-write primitive and enforces no uniqueness,
// so upsert is search-then-branch:
//
//   - empty criteria: always insert (the vendor's default behavior)
//   - with criteria: the module is searched and every matching page drained;
//     the first match's id is attached to the outgoing record as record_id
//     and the call becomes an update. Exactly one record is updated; any
//     further matches are left alone — callers own duplicate avoidance.
//   - no match: insert, same as the no-criteria path
//
// Mutation responses carry only identifiers and status metadata, so on
// success the record is re-fetched and returned in full: persisted values
// can differ from the request (computed and derived fields).
//
// Ordinary rejections (missing mandatory fields, validation) return
// (false, vendor body) with a nil error.
func (c *Client) Upsert(ctx context.Context, module string, payload RecordPayload, criteria string) (bool, Record, error) {
	if err := payload.normalize(); err != nil {
		return false, nil, err
	}

	method := http.MethodPost
	if criteria != "" {
		var matches []Record
		for page, err := range c.Records(ctx, module, WithCriteria(criteria)) {
			if err != nil {
				return false, nil, err
			}
			matches = append(matches, page...)
		}
		if len(matches) > 0 {
			// First match wins, in whatever order the vendor returned.
			payload.Data[0]["record_id"] = matches[0].ID()
			method = http.MethodPut
		}
	}

	resp, body, err := c.callReportable(ctx, request{
		method: method,
		path:   "/" + module,
		body:   payload,
	})
	if err != nil {
		return false, nil, err
	}
	if resp.IsError() {
		return false, Record(body), nil
	}

	id := gjson.GetBytes(resp.Body(), "data.0.details.id").String()
	if id == "" {
		return false, nil, &FormatError{URL: module, Hint: "mutation response carries no data.0.details.id"}
	}
	record, err := c.GetByID(ctx, module, id)
	if err != nil {
		return false, nil, err
	}
	return true, record, nil
}

// RelatedRecords enumerates the records of a child module related to one
// parent record. Returns nil without error when the API answers with no body
// (nothing modified since the conditional timestamp, or no content).
//
// The API cannot filter related records by criteria; callers filter the
// enumeration client-side when they need to.
func (c *Client) RelatedRecords(ctx context.Context, parentModule, parentID, childModule string, opts ...QueryOption) ([]Record, error) {
	q := applyQueryOptions(opts)
	path := "/" + parentModule + "/" + parentID + "/" + childModule

	body, err := c.call(ctx, request{
		method: http.MethodGet,
		path:   path,
		header: q.headers(),
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var envelope recordPage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FormatError{URL: path, Hint: err.Error()}
	}
	if !gjson.GetBytes(body, "data").Exists() {
		return nil, &FormatError{URL: path, Hint: "no data field in response"}
	}
	return envelope.Data, nil
}
