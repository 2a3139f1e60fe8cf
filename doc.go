// Package zohocrm is a client for the Zoho CRM v2 REST API.
//
// The client authenticates with the OAuth2 refresh-token grant, keeps the
// short-lived access token in durable storage, and transparently refreshes
// and replays a request once when the API answers 401. Transient transport
// failures (connection errors, 429, 5xx) are retried with exponential
// backoff before any of this applies.
//
// Records are dynamic: module field sets are configured on the vendor side,
// so records travel as field-name-to-value maps and the client inspects only
// the envelope fields it needs (id, data, info.more_records, details.id).
//
// Paginated reads are lazy iterators; breaking out early stops issuing
// requests:
//
//	for page, err := range client.Records(ctx, "Accounts") {
//		if err != nil {
//			return err
//		}
//		for _, record := range page {
//			...
//		}
//	}
//
// Searching across modules is not possible through the vendor API; enumerate
// a candidate superset and filter client-side instead.
package zohocrm
