// Package internaldefs holds the stable metric name definitions shared by
// exporter implementations, so every exporter exposes identical names and
// bucket boundaries.
//
// # What this package must NOT do
//
//   - Import jwxt or any exporter package beyond the ID type.
//   - Perform I/O.
package internaldefs
