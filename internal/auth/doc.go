// Package auth implements the identity and credential lifecycle for
// orizon-gateway.
//
// # Two trust domains
//
// Internal users are authenticated upstream by a reverse proxy that injects
// trusted identity headers (oauth2-proxy style). External users prove
// control of an email address through a single-use magic link and end up
// with a long-lived virtual API key. Both paths converge on the same
// artifact: an Authorization header carrying a virtual key issued by the
// credential authority.
//
// # Components
//
//   - ExtractIdentity reads the trusted headers (primary names win over the
//     simplified fallbacks).
//   - Tokens manages magic-link tokens: issuance never fails the caller even
//     when the store is down, and verification consumes the token in one
//     atomic store operation so it can never succeed twice.
//   - Sessions manages renewable session records and their httpOnly cookie
//     binding, through narrow CookieReader/CookieWriter capabilities.
//   - Handlers serves POST /api/auth/signup, POST /api/auth/login,
//     GET /api/auth/verify, POST /api/auth/logout, and GET /api/auth/me.
//     Login responses are identical for known and unknown emails.
//   - Middleware is the per-request dispatcher: health paths bypass auth,
//     trusted-header identities get a virtual key attached (fail-open on
//     provisioning errors), everything else forwards untouched for the
//     authority to judge.
//
// All shared state lives in the store.KV backend; nothing is cached
// in-process.
package auth
