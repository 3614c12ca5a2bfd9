// Package metrics defines the Prometheus collectors of pagelens.
//
// All methods are safe to call on a nil *Metrics, so components can be
// used without metrics wired in.
package metrics
