// Package errors provides structured errors for the gigmarket console.
//
// Every error carries a stable code (E101, E301, ...) so logs, popups and
// CLI output can refer to the same failure. Codes are grouped by category:
//
//	E1xx  configuration
//	E2xx  transport (REST backend, WebSocket)
//	E3xx  optimistic mutations
//	E4xx  uploads
//	E5xx  search
//	E6xx  CLI
//
// Usage:
//
//	return errors.New("E101").
//	    WithDetail("No gigmarket.json found in " + dir).
//	    WithSuggestion("Run 'gigmarket config init'")
package errors
