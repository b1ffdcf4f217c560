// Package internaldefs holds the metric names, help strings and bucket
// helpers used by exporters, so every exporter publishes the same series.
//
// # What this package must NOT do
//
//   - Perform I/O.
package internaldefs
