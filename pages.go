package zohocrm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/tidwall/gjson"
)

// Record is one business object instance within a module, as a
// field-name-to-value mapping. Field sets are configured on the vendor side
// and opaque to the client.
type Record map[string]any

// ID returns the record's id, or "" when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// recordPage is the envelope of paginated reads.
type recordPage struct {
	Data []Record `json:"data"`
	Info struct {
		MoreRecords bool `json:"more_records"`
	} `json:"info"`
}

// DeletedType filters the deleted-records listing.
type DeletedType string

const (
	// DeletedAll lists every deleted record.
	DeletedAll DeletedType = "all"
	// DeletedRecycle lists records still in the recycle bin.
	DeletedRecycle DeletedType = "recycle"
	// DeletedPermanent lists permanently deleted records.
	DeletedPermanent DeletedType = "permanent"
)

// listQuery holds the common query parameters of paginated reads.
type listQuery struct {
	Criteria string `url:"criteria,omitempty"`
	Type     string `url:"type,omitempty"`
	Page     int    `url:"page"`
}

// QueryOption refines a paginated or related-records read.
type QueryOption func(*queryOptions)

type queryOptions struct {
	criteria      string
	deletedType   DeletedType
	params        url.Values
	modifiedSince time.Time
}

// WithCriteria searches the module with a vendor criteria expression,
// e.g. ((Account_Name:equals:ACME) and (City:starts_with:Syd)). Up to ten
// equals/starts_with terms can be combined.
func WithCriteria(criteria string) QueryOption {
	return func(q *queryOptions) {
		q.criteria = criteria
	}
}

// WithParams adds extra vendor query parameters (fields, sort_by, ...).
func WithParams(params url.Values) QueryOption {
	return func(q *queryOptions) {
		q.params = params
	}
}

// WithModifiedSince makes the read conditional: the vendor answers 304 (an
// empty sequence) when nothing changed after t.
func WithModifiedSince(t time.Time) QueryOption {
	return func(q *queryOptions) {
		q.modifiedSince = t
	}
}

func applyQueryOptions(opts []QueryOption) queryOptions {
	var q queryOptions
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

func (q queryOptions) headers() http.Header {
	if q.modifiedSince.IsZero() {
		return nil
	}
	return http.Header{"If-Modified-Since": []string{q.modifiedSince.Format(time.RFC3339)}}
}

// Records returns a lazy sequence of record pages from a module. With
// WithCriteria the search endpoint is used instead of the plain listing.
//
// Each advancement fetches exactly one page, so breaking out after K pages
// issues only K requests. The sequence is not resumable: ranging again
// starts a fresh read from page 1.
func (c *Client) Records(ctx context.Context, module string, opts ...QueryOption) iter.Seq2[[]Record, error] {
	q := applyQueryOptions(opts)
	path := "/" + module
	if q.criteria != "" {
		path += "/search"
	}
	return c.pages(ctx, path, q)
}

// DeletedRecords returns a lazy sequence of soft-deleted record pages,
// filtered by deletedType. Pages follow the same contract as Records.
func (c *Client) DeletedRecords(ctx context.Context, module string, deletedType DeletedType, opts ...QueryOption) iter.Seq2[[]Record, error] {
	q := applyQueryOptions(opts)
	q.criteria = ""
	if deletedType == "" {
		deletedType = DeletedAll
	}
	q.deletedType = deletedType
	return c.pages(ctx, "/"+module+"/deleted", q)
}

// pages walks the page parameter from 1 until info.more_records goes false
// or the API stops returning a body.
func (c *Client) pages(ctx context.Context, path string, q queryOptions) iter.Seq2[[]Record, error] {
	return func(yield func([]Record, error) bool) {
		headers := q.headers()
		for page := 1; ; page++ {
			values, err := query.Values(listQuery{
				Criteria: q.criteria,
				Type:     string(q.deletedType),
				Page:     page,
			})
			if err != nil {
				yield(nil, fmt.Errorf("building query for %s: %w", path, err))
				return
			}
			for key, extra := range q.params {
				// page, criteria and type belong to the loop; letting a
				// caller pin page would refetch the same page forever
				if key == "page" || key == "criteria" || key == "type" {
					continue
				}
				values[key] = extra
			}

			body, err := c.call(ctx, request{
				method: http.MethodGet,
				path:   path,
				query:  values,
				header: headers,
			})
			if err != nil {
				yield(nil, err)
				return
			}
			if body == nil {
				// 204/304: the sequence simply ends.
				return
			}

			if !gjson.GetBytes(body, "data").Exists() {
				yield(nil, &FormatError{
					URL:  path,
					Hint: "no data field on page " + strconv.Itoa(page),
				})
				return
			}

			var envelope recordPage
			if err := json.Unmarshal(body, &envelope); err != nil {
				yield(nil, &FormatError{URL: path, Hint: err.Error()})
				return
			}

			if !yield(envelope.Data, nil) {
				return
			}
			if !envelope.Info.MoreRecords {
				return
			}
		}
	}
}
