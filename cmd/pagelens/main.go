// Package main provides the entry point for the pagelens CLI.
//
// pagelens fetches web pages through a rotating pool of proxies and user
// agents, extracts their structure (title, metadata, headings, paragraphs,
// links, images, word frequencies) and follows a bounded number of links.
//
// Usage:
//
//	pagelens scrape https://example.com
//	pagelens scrape --depth 1 --json https://example.com
//	pagelens serve --listen 127.0.0.1:8080
//	pagelens history compare https://example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
