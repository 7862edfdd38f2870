// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and validation used by the auth API handlers.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//
// Error responses:
//
//	httputil.WriteBadRequest(w, "invalid input")
//	httputil.WriteUnauthorized(w, "token expired")
//	httputil.WriteForbidden(w, "insufficient permissions")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req loginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//
// Path and header helpers:
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//	raw := httputil.BearerToken(r)
//
// # Related Packages
//
//   - pkg/middleware: Authentication and request middleware
//   - pkg/api: HTTP handlers built on these helpers
package httputil
