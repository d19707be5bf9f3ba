// Package report reads and writes the results file.
//
// A results file is a JSON document holding the scan date, the scanned
// user's id and the accounts that do not follow back. Export builds one
// from the store, Import loads one back as a completed import, and
// AutoExporter writes one automatically after each completed scan.
package report
