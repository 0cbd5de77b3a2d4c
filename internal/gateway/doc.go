// Package gateway assembles the orizon-gateway HTTP server.
//
// The server has two surfaces on one mux: the /api/auth endpoints served
// locally, and a catch-all reverse proxy to the credential authority wrapped
// in the auth dispatcher. Health paths flow through the dispatcher's bypass
// so the authority's own liveness endpoints stay reachable unauthenticated.
package gateway
