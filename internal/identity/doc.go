// Package identity manages the egress identity of outbound requests.
//
// An Identity is an immutable pair of proxy endpoint and User-Agent string.
// A Pool holds the configured proxies and user agents and derives the next
// Identity from the current one by advancing two independent circular
// cursors. Because the Identity travels with each request, concurrent
// requests never observe each other's rotations.
//
// The package also builds HTTP clients that egress through a given proxy
// (http, https, socks5 or socks5h), can launch an embedded Tor daemon whose
// SOCKS port is then used as a proxy, and validates v3 .onion host names.
package identity
