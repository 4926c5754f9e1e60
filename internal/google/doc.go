// Package google provides OAuth2 credentials and token storage for the
// Google Calendar API.
//
// Tokens live in one JSON file per account (google-<account>.token) under a
// configurable directory. HTTPClient builds an authenticated client from a
// TokenProvider and writes refreshed tokens back when the provider can.
package google
