// Package report renders the activity ledger as a Markdown summary:
// download totals, the links that failed, and the latest resume cursor.
package report
