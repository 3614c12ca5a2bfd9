// Package crawl drives extraction of a seed URL and, optionally, of the
// pages it links to.
//
// For each page the Crawler fetches the HTML through the retry controller,
// rotating the egress identity between attempts, and hands the HTML to the
// extractor. With depth > 0 the first five links of the page are crawled
// concurrently with depth - 1 and attached as subpages in link order. The
// total number of fetches is bounded by the branching factor and the depth.
//
// By default no visited set is kept, so a cycle A -> B -> A is fetched
// again on every level until the depth runs out. WithVisitedSet changes
// that: each URL is then fetched at most once per crawl, and links to
// pages already fetched are left out of the subpages.
package crawl
