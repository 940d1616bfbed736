// Package output formats shadowhome-cli results.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned tables from structs, slices and maps
//   - json.go, yaml.go: machine-readable output
//   - spinner.go: progress animation while a wallet prompt is open
package output
