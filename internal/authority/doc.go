// Package authority wraps the downstream credential authority, the
// LiteLLM-compatible API that owns user records and issues the virtual keys
// the gateway attaches to forwarded requests.
//
// Client speaks the authority's management endpoints (/user/info, /user/new,
// /key/generate) with the configured master credential. Provisioner layers
// the get-or-create flow on top: emails map to deterministic user ids, so
// repeated and concurrent provisioning converge on a single user record
// while each call still mints a fresh virtual key.
package authority
