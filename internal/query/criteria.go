// internal/query/criteria.go
package query

import (
	"strings"

	"github.com/solatis/gfb/internal/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

/*
 * Criteria rendering for a single field.
 *
 * Renders one clause's value list into Gmail query text:
 *   - recognized field:   from:("a@x.com" OR "b@y.com")
 *   - unrecognized field: ("free text" OR "more text")
 *   - no field:           VALUE (upper-cased, used for keywords)
 *   - negated:            leading "-" on the whole chunk
 *
 * Oversize recursion: a chunk at or above the budget is re-rendered as
 * n = max(2, ceil(len/budget)) smaller value groups with identical
 * field/join/negation. Each recursive call strictly shrinks the value list,
 * so recursion terminates at a single value. A single value that is still
 * oversized is returned as-is; the splitter rejects it.
 *
 * Chunks of one split clause must be joined by chunkJoin: the clause join,
 * flipped for negated clauses (-(a OR b) == -(a) AND -(b)).
 */

// buildCriteria renders values into one or more chunks, each below the budget
// whenever the value list can be divided.
func (c *Compiler) buildCriteria(values []string, field string, join types.Join, negate bool) []string {
	chunk := c.renderChunk(values, field, join, negate)
	if len(chunk) < c.budget || len(values) < 2 {
		return []string{chunk}
	}

	groups := ceilDiv(len(chunk), c.budget)
	if groups < 2 {
		groups = 2
	}
	size := ceilDiv(len(values), groups)

	chunks := make([]string, 0, groups)
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		chunks = append(chunks, c.buildCriteria(values[start:end], field, join, negate)...)
	}
	return chunks
}

// renderChunk renders the full value list without any size consideration.
func (c *Compiler) renderChunk(values []string, field string, join types.Join, negate bool) string {
	var b strings.Builder
	if negate {
		b.WriteByte('-')
	}

	if field == "" {
		upper := cases.Upper(language.Und)
		text := upper.String(strings.Join(values, join.Text()))
		if len(values) > 1 {
			text = "(" + text + ")"
		}
		b.WriteString(text)
		return b.String()
	}

	if op, ok := c.fields[field]; ok {
		b.WriteString(op)
		b.WriteByte(':')
	}
	b.WriteByte('(')
	for i, v := range values {
		if i > 0 {
			b.WriteString(join.Text())
		}
		b.WriteString(quoteValue(v))
	}
	b.WriteByte(')')
	return b.String()
}

// chunkJoin returns the joiner between chunks of one split clause.
func chunkJoin(join types.Join, negate bool) types.Join {
	if negate {
		return join.Flip()
	}
	return join
}

// quoteValue wraps a value in double quotes unless it is wildcard-only.
// Gmail's query grammar has no escape for embedded quotes; they are dropped.
func quoteValue(v string) string {
	v = strings.ReplaceAll(strings.TrimSpace(v), `"`, "")
	if isWildcard(v) {
		return v
	}
	return `"` + v + `"`
}

// isWildcard reports whether v consists only of '*'.
func isWildcard(v string) bool {
	return v != "" && strings.Trim(v, "*") == ""
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
