// Package httputil provides shared HTTP response/request utilities for the
// CRM API handlers.
//
// Every handler file should use these helpers instead of writing raw
// http.ResponseWriter calls. This keeps JSON formatting, error envelopes,
// and logging consistent across all endpoints.
package httputil
