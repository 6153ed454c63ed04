// Package bound enforces the hard output cap for orchestrator-facing
// text. Every public textual result passes through Truncate before it
// reaches stdout; content destined for a subordinate agent bypasses it.
package bound

import "fmt"

// MaxOutput is the hard cap in bytes for any text returned to the
// orchestrator.
const MaxOutput = 4000

// Truncate caps text at MaxOutput bytes. The truncation notice names
// the operation and hints at narrower invocations, and the total
// including the notice never exceeds MaxOutput.
func Truncate(text, op string) string {
	return TruncateTo(text, op, MaxOutput)
}

// TruncateTo is Truncate with an explicit budget, for callers that
// reserve headroom for trailing lines of their own.
func TruncateTo(text, op string, max int) string {
	if len(text) <= max {
		return text
	}
	notice := fmt.Sprintf("\n... [%s output truncated at %d bytes -- narrow with extract --lines, --grep, or --chunk-id]", op, max)
	cut := max - len(notice)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + notice
}
