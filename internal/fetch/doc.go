// Package fetch retrieves the HTML of a single URL.
//
// A Fetcher takes a URL and the egress identity to use and returns the
// decoded HTML bytes, or one of the typed errors in this package:
//
//   - InvalidInputError: the URL is missing or malformed; never retried
//   - NetworkError: connection failure or the 30 second timeout
//   - HTTPStatusError: a status outside 2xx
//   - ContentTypeError: a body that is not declared as HTML
//   - EmptyBodyError: a body that is empty or whitespace only
//
// HTTPTransport talks to the origin server itself, optionally through the
// identity's proxy, sending the headers of a desktop browser and decoding
// gzip, deflate and br bodies as well as non UTF-8 charsets.
// RelayTransport delegates the request to a forwarding relay such as the
// one in package relay.
package fetch
