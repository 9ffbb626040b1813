// Command sapauth analyses SAP authorization exports: user status, role
// utilization and transaction-code usage, optionally within a date window.
//
// Usage:
//
//	sapauth [flags] <command>
//
// The export is taken from --source, SAPAUTH_SOURCE, or the source key of
// sapauth.yaml. It may be a local XLSX/CSV file or an http(s) URL.
package main

func main() {
	Execute()
}
