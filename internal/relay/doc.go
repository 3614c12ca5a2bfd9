// Package relay serves the forwarding relay used by clients that cannot
// fetch third-party pages themselves.
//
// GET /api/proxy?url=<absolute URL> fetches the page with browser-like
// headers and a user agent picked at random, and returns the HTML
// unchanged. POST /api/scrape extracts a page and returns its record as
// JSON. Requests to the same target host are limited to one per second.
// Errors are JSON envelopes of the form {"error": ..., "details": ...}.
package relay
