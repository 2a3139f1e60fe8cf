package zohocrm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"
)

// fakeZoho is an in-memory stand-in for the vendor API: modules of ordered
// records, paginated listings, a simple single-criterion search, and the
// OAuth token endpoint. All /crm routes demand the currently issued token.
type fakeZoho struct {
	srv *httptest.Server

	mu           sync.Mutex
	modules      map[string][]Record
	related      map[string][]Record // key: parent/parentID/child
	users        []Record
	perPage      int
	nextID       int
	accessToken  string
	refreshCount int
	rejectWrites bool
	alwaysDeny   bool
	hits         map[string]int
	lastBody     []byte
}

func newFakeZoho() *fakeZoho {
	router := httprouter.New()

	f := &fakeZoho{
		modules:     make(map[string][]Record),
		related:     make(map[string][]Record),
		perPage:     2,
		accessToken: "tok-0",
		hits:        make(map[string]int),
		srv:         httptest.NewServer(router),
	}

	router.POST("/oauth/v2/token", f.handleToken)

	// httprouter cannot mix static and wildcard segments at one level, so the
	// fixed endpoints (users, search, deleted) dispatch inside the handlers.
	router.GET("/crm/v2/:module", f.handleList)
	router.GET("/crm/v2/:module/:id", f.handleGet)
	router.GET("/crm/v2/:module/:id/:child", f.handleRelated)
	router.POST("/crm/v2/:module", f.handleInsert)
	router.PUT("/crm/v2/:module", f.handleUpdate)
	router.DELETE("/crm/v2/:module", f.handleDelete)

	return f
}

func (f *fakeZoho) URL() string     { return f.srv.URL }
func (f *fakeZoho) BaseURL() string { return f.srv.URL + "/crm/v2" }
func (f *fakeZoho) Close()          { f.srv.Close() }

func (f *fakeZoho) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessToken
}

func (f *fakeZoho) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCount
}

func (f *fakeZoho) LastBody() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func (f *fakeZoho) SetPerPage(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perPage = n
}

func (f *fakeZoho) SetUsers(users []Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = users
}

// SetRejectWrites makes every insert and update answer 400 INVALID_DATA,
// the way the vendor rejects payloads failing field validation.
func (f *fakeZoho) SetRejectWrites(reject bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectWrites = reject
}

// SetAlwaysUnauthorized makes every authenticated route answer 401 even for
// freshly issued tokens, so a refresh cannot help.
func (f *fakeZoho) SetAlwaysUnauthorized(deny bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alwaysDeny = deny
}

// ExpireToken invalidates the current token without issuing a new one, so
// the next authenticated request gets a 401.
func (f *fakeZoho) ExpireToken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessToken = "expired-" + f.accessToken
}

func (f *fakeZoho) Seed(module string, records ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range records {
		f.nextID++
		stored := Record{"id": strconv.Itoa(f.nextID)}
		for key, value := range record {
			stored[key] = value
		}
		f.modules[module] = append(f.modules[module], stored)
	}
}

func (f *fakeZoho) SeedRelated(parent, parentID, child string, records ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := parent + "/" + parentID + "/" + child
	f.related[key] = append(f.related[key], records...)
}

func (f *fakeZoho) Count(module string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.modules[module])
}

func (f *fakeZoho) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

func (f *fakeZoho) record(module, id string) (Record, int) {
	for i, record := range f.modules[module] {
		if record.ID() == id {
			return record, i
		}
	}
	return nil, -1
}

func (f *fakeZoho) authorized(rw http.ResponseWriter, r *http.Request) bool {
	f.hits[r.Method+" "+r.URL.Path]++
	if f.alwaysDeny || r.Header.Get("Authorization") != "Zoho-oauthtoken "+f.accessToken {
		writeJSON(rw, http.StatusUnauthorized, map[string]any{
			"code": "INVALID_TOKEN", "message": "invalid oauth token", "status": "error",
		})
		return false
	}
	return true
}

func (f *fakeZoho) handleToken(rw http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits["POST /oauth/v2/token"]++

	q := r.URL.Query()
	if q.Get("grant_type") != "refresh_token" || q.Get("refresh_token") != "refresh-token" {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"error": "invalid_code"})
		return
	}

	f.refreshCount++
	f.accessToken = fmt.Sprintf("tok-%d", f.refreshCount)
	writeJSON(rw, http.StatusOK, map[string]any{
		"access_token": f.accessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"api_domain":   f.srv.URL,
	})
}

func (f *fakeZoho) handleList(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized(rw, r) {
		return
	}

	module := ps.ByName("module")
	if module == "users" {
		writeJSON(rw, http.StatusOK, map[string]any{"users": f.users})
		return
	}
	f.writePage(rw, r, f.modules[module])
}

func (f *fakeZoho) handleGet(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized(rw, r) {
		return
	}

	module, id := ps.ByName("module"), ps.ByName("id")
	switch id {
	case "search":
		f.writePage(rw, r, f.search(module, r.URL.Query().Get("criteria")))
	case "deleted":
		// the fake treats every module as having no deleted records unless
		// a "<module>__deleted" module was seeded
		f.writePage(rw, r, f.modules[module+"__deleted"])
	default:
		record, _ := f.record(module, id)
		if record == nil {
			rw.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"data": []Record{record}})
	}
}

func (f *fakeZoho) handleRelated(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized(rw, r) {
		return
	}

	if r.Header.Get("If-Modified-Since") != "" {
		rw.WriteHeader(http.StatusNotModified)
		return
	}
	key := ps.ByName("module") + "/" + ps.ByName("id") + "/" + ps.ByName("child")
	records := f.related[key]
	if records == nil {
		rw.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"data": records})
}

func (f *fakeZoho) handleInsert(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized(rw, r) {
		return
	}

	payload, ok := f.readPayload(rw, r)
	if !ok {
		return
	}

	module := ps.ByName("module")
	var details []map[string]any
	for _, record := range payload.Data {
		f.nextID++
		stored := Record{"id": strconv.Itoa(f.nextID)}
		for key, value := range record {
			stored[key] = value
		}
		f.modules[module] = append(f.modules[module], stored)
		details = append(details, map[string]any{
			"code": "SUCCESS", "status": "success", "details": map[string]any{"id": stored.ID()},
		})
	}
	writeJSON(rw, http.StatusCreated, map[string]any{"data": details})
}

func (f *fakeZoho) handleUpdate(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized(rw, r) {
		return
	}

	payload, ok := f.readPayload(rw, r)
	if !ok {
		return
	}

	module := ps.ByName("module")
	var details []map[string]any
	for _, incoming := range payload.Data {
		id, _ := incoming["record_id"].(string)
		if id == "" {
			id, _ = incoming["id"].(string)
		}
		record, _ := f.record(module, id)
		if record == nil {
			writeJSON(rw, http.StatusBadRequest, map[string]any{
				"data": []map[string]any{{"code": "INVALID_DATA", "status": "error"}},
			})
			return
		}
		for key, value := range incoming {
			if key == "record_id" || key == "id" {
				continue
			}
			record[key] = value
		}
		details = append(details, map[string]any{
			"code": "SUCCESS", "status": "success", "details": map[string]any{"id": id},
		})
	}
	writeJSON(rw, http.StatusOK, map[string]any{"data": details})
}

func (f *fakeZoho) handleDelete(rw http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.authorized(rw, r) {
		return
	}

	module := ps.ByName("module")
	id := r.URL.Query().Get("ids")
	record, index := f.record(module, id)
	if record == nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{
			"data": []map[string]any{{"code": "INVALID_DATA", "status": "error", "message": "record not found"}},
		})
		return
	}
	f.modules[module] = append(f.modules[module][:index], f.modules[module][index+1:]...)
	writeJSON(rw, http.StatusOK, map[string]any{
		"data": []map[string]any{{"code": "SUCCESS", "status": "success", "details": map[string]any{"id": id}}},
	})
}

func (f *fakeZoho) readPayload(rw http.ResponseWriter, r *http.Request) (RecordPayload, bool) {
	var payload RecordPayload
	raw, _ := io.ReadAll(r.Body)
	f.lastBody = raw
	if f.rejectWrites || json.Unmarshal(raw, &payload) != nil || len(payload.Data) == 0 {
		writeJSON(rw, http.StatusBadRequest, map[string]any{
			"data": []map[string]any{{"code": "INVALID_DATA", "status": "error"}},
		})
		return RecordPayload{}, false
	}
	return payload, true
}

// search supports a single "(field:op:value)" criterion with the equals and
// starts_with operators, enough to drive the upsert reconciliation tests.
func (f *fakeZoho) search(module, criteria string) []Record {
	trimmed := strings.NewReplacer("(", "", ")", "").Replace(criteria)
	parts := strings.SplitN(trimmed, ":", 3)
	if len(parts) != 3 {
		return nil
	}
	field, op, want := parts[0], parts[1], parts[2]

	var matches []Record
	for _, record := range f.modules[module] {
		have := fmt.Sprint(record[field])
		switch op {
		case "equals":
			if have == want {
				matches = append(matches, record)
			}
		case "starts_with":
			if strings.HasPrefix(have, want) {
				matches = append(matches, record)
			}
		}
	}
	return matches
}

// writePage slices records according to the page parameter and reports
// info.more_records. An empty result set has no body at all, like the vendor.
func (f *fakeZoho) writePage(rw http.ResponseWriter, r *http.Request, records []Record) {
	if r.Header.Get("If-Modified-Since") != "" {
		rw.WriteHeader(http.StatusNotModified)
		return
	}
	if len(records) == 0 {
		rw.WriteHeader(http.StatusNoContent)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	start := (page - 1) * f.perPage
	if start >= len(records) {
		rw.WriteHeader(http.StatusNoContent)
		return
	}
	end := min(start+f.perPage, len(records))

	writeJSON(rw, http.StatusOK, map[string]any{
		"data": records[start:end],
		"info": map[string]any{"more_records": end < len(records), "page": page},
	})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
