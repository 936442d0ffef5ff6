// internal/query/split.go
package query

import (
	"strings"

	"github.com/solatis/gfb/internal/types"
)

/*
 * Size-bounded splitting.
 *
 * Turns one token stream into one or more queries, each strictly shorter
 * than the budget. Several filters with identical actions behave like one
 * filter whose criteria are OR-joined, so a stream may only be cut at a
 * top-level OR joiner.
 *
 * Splitting workflow:
 *   1. Fast path: the whole stream renders below budget -> one query
 *   2. Unit walk: index walk with a nesting counter turns the stream into
 *      top-level units (a criterion or a balanced group) and joiners
 *   3. AND-consolidation: prev AND next is merged into one unit, left to right
 *   4. Greedy packing: units are appended to the current query across OR
 *      joiners while the result stays below budget
 *
 * Any unit (group, AND chain or single criterion) at or above the budget
 * cannot be placed without changing the boolean meaning and fails with
 * SectionTooLargeError. No partial output is returned.
 */

// unit is one indivisible piece of the top-level stream, or a joiner between them.
type unit struct {
	text   string
	joiner bool
	join   types.Join
	group  bool
}

// Split partitions a token stream into budget-compliant queries.
func Split(tokens []types.Token, budget int) ([]string, error) {
	if len(tokens) == 0 {
		return nil, types.ErrEmptyFilter
	}

	full := types.Render(tokens)
	if len(full) < budget {
		return []string{full}, nil
	}

	units, err := topLevelUnits(tokens, budget)
	if err != nil {
		return nil, err
	}

	units = consolidateAnd(units)

	for _, u := range units {
		if !u.joiner && len(u.text) >= budget {
			return nil, &types.SectionTooLargeError{Section: u.text, Length: len(u.text), Budget: budget}
		}
	}

	return pack(units, budget), nil
}

// topLevelUnits walks the stream and groups balanced parentheses into single units.
// A group at or above the budget is rejected here with its own text.
func topLevelUnits(tokens []types.Token, budget int) ([]unit, error) {
	units := make([]unit, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case types.TokenJoiner:
			units = append(units, unit{text: tok.Text, joiner: true, join: tok.Join})

		case types.TokenGroupOpen:
			depth := 0
			end := i
			for ; end < len(tokens); end++ {
				switch tokens[end].Kind {
				case types.TokenGroupOpen:
					depth++
				case types.TokenGroupClose:
					depth--
				}
				if depth == 0 {
					break
				}
			}
			if end == len(tokens) {
				end = len(tokens) - 1
			}
			text := types.Render(tokens[i : end+1])
			if len(text) >= budget {
				return nil, &types.SectionTooLargeError{Section: text, Length: len(text), Budget: budget}
			}
			units = append(units, unit{text: text, group: true})
			i = end

		default:
			units = append(units, unit{text: tok.Text})
		}
	}
	return units, nil
}

// consolidateAnd merges every `prev AND next` triple into one unit so no later
// split can separate AND-joined clauses.
func consolidateAnd(units []unit) []unit {
	out := make([]unit, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u.joiner && u.join == types.JoinAnd && len(out) > 0 && !out[len(out)-1].joiner && i+1 < len(units) {
			prev := &out[len(out)-1]
			prev.text = prev.text + u.text + units[i+1].text
			prev.group = prev.group || units[i+1].group
			i++
			continue
		}
		out = append(out, u)
	}
	return out
}

// pack greedily fills queries across OR joiners. Every unit is already below budget.
func pack(units []unit, budget int) []string {
	var (
		queries []string
		current strings.Builder
		pending string // OR joiner waiting for the next unit
	)

	for _, u := range units {
		if u.joiner {
			pending = u.text
			continue
		}
		if current.Len() == 0 {
			current.WriteString(u.text)
			pending = ""
			continue
		}
		if pending == "" {
			pending = types.JoinOr.Text()
		}
		if current.Len()+len(pending)+len(u.text) < budget {
			current.WriteString(pending)
			current.WriteString(u.text)
		} else {
			queries = append(queries, current.String())
			current.Reset()
			current.WriteString(u.text)
		}
		pending = ""
	}

	if current.Len() > 0 {
		queries = append(queries, current.String())
	}
	return queries
}
