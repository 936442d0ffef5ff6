// internal/query/compile.go
package query

import (
	"strings"

	"github.com/solatis/gfb/internal/types"
)

/*
 * Section compilation.
 *
 * Walks a Section tree and produces a flat token stream of criteria,
 * joiner markers and balanced group markers.
 *
 * Join placement: every clause carries the join of its key. The join is
 * emitted in front of the clause only when the stream already ends in a
 * criterion or a closed group; the first clause of a sequence and a clause
 * following an explicit joiner literal get none. This is tracked over the
 * whole sequence (the top-level data list or a group body), not per mapping.
 *
 * Joiner literals (bare "and"/"or" sections, or a field-less clause whose
 * value is a joiner word) are dropped at the start of a sequence, replace a
 * directly preceding joiner, and are trimmed at the end of a sequence.
 *
 * Empty value lists compile to nothing (no-op clause). A group whose body
 * compiles to nothing is dropped with its markers.
 *
 * A clause split by the criteria builder is wrapped in soft group markers;
 * finish() either inlines its chunks or turns the markers into a real group,
 * depending on the joiners around it.
 */

// tokenStream accumulates tokens with join placement rules.
type tokenStream struct {
	tokens []types.Token
}

// joinable reports whether the next clause needs a join marker in front.
func (s *tokenStream) joinable() bool {
	if len(s.tokens) == 0 {
		return false
	}
	last := s.tokens[len(s.tokens)-1].Kind
	return last == types.TokenCriterion || last == types.TokenGroupClose
}

// joiner appends an explicit joiner literal.
func (s *tokenStream) joiner(j types.Join) {
	if len(s.tokens) == 0 {
		return
	}
	last := len(s.tokens) - 1
	switch s.tokens[last].Kind {
	case types.TokenJoiner:
		s.tokens[last] = joinerToken(j)
	case types.TokenGroupOpen:
		// leading joiner inside a group has nothing to join
	default:
		s.tokens = append(s.tokens, joinerToken(j))
	}
}

// clause appends one clause's tokens, preceded by its join when needed.
func (s *tokenStream) clause(j types.Join, toks ...types.Token) {
	if len(toks) == 0 {
		return
	}
	if s.joinable() {
		s.tokens = append(s.tokens, joinerToken(j))
	}
	s.tokens = append(s.tokens, toks...)
}

// finish trims a trailing joiner literal, resolves soft groups and returns the stream.
func (s *tokenStream) finish() []types.Token {
	for len(s.tokens) > 0 && s.tokens[len(s.tokens)-1].Kind == types.TokenJoiner {
		s.tokens = s.tokens[:len(s.tokens)-1]
	}
	return resolveSoftGroups(s.tokens)
}

// resolveSoftGroups decides, per split clause, whether its chunks can stand
// unparenthesized in this sequence. AND binds tighter than OR, so OR-joined
// chunks next to an AND joiner keep their parentheses (and become an
// indivisible group); everything else is inlined. Soft groups never nest:
// nested sequences are resolved when they finish.
func resolveSoftGroups(tokens []types.Token) []types.Token {
	out := make([]types.Token, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != types.TokenGroupOpen || !tok.Soft {
			out = append(out, tok)
			continue
		}

		end := i + 1
		for end < len(tokens) && tokens[end].Kind != types.TokenGroupClose {
			end++
		}
		inner := tokens[i+1 : end]

		keep := false
		if len(inner) > 1 && inner[1].Join == types.JoinOr {
			prevAnd := len(out) > 0 && out[len(out)-1].Kind == types.TokenJoiner && out[len(out)-1].Join == types.JoinAnd
			nextAnd := end+1 < len(tokens) && tokens[end+1].Kind == types.TokenJoiner && tokens[end+1].Join == types.JoinAnd
			keep = prevAnd || nextAnd
		}

		if keep {
			out = append(out, types.Token{Kind: types.TokenGroupOpen, Text: "("})
			out = append(out, inner...)
			out = append(out, types.Token{Kind: types.TokenGroupClose, Text: ")"})
		} else {
			out = append(out, inner...)
		}
		i = end
	}
	return out
}

func joinerToken(j types.Join) types.Token {
	return types.Token{Kind: types.TokenJoiner, Text: j.Text(), Join: j}
}

// compileSections compiles a sequence of sections into one token stream.
func (c *Compiler) compileSections(sections []types.Section) ([]types.Token, error) {
	stream := &tokenStream{}
	for _, section := range sections {
		if err := c.compileSection(stream, section); err != nil {
			return nil, err
		}
	}
	return stream.finish(), nil
}

// compileSection appends one section to the stream.
func (c *Compiler) compileSection(stream *tokenStream, section types.Section) error {
	if section.IsJoiner() {
		j, ok := types.ParseJoin(section.Joiner)
		if !ok {
			return &types.MalformedKeyError{Key: section.Joiner, Reason: "joiner literal must be 'and' or 'or'"}
		}
		stream.joiner(j)
		return nil
	}

	for _, clause := range section.Clauses {
		key, err := DecodeKey(clause.Key)
		if err != nil {
			return err
		}

		switch clause.Kind {
		case types.ClauseGroup:
			body, err := c.compileSections(clause.Groups)
			if err != nil {
				return err
			}
			if len(body) == 0 {
				c.logger.Debug("skipping empty group", "key", clause.Key, "line", clause.Line)
				continue
			}
			open := "("
			if key.Negate {
				open = "-("
			}
			toks := make([]types.Token, 0, len(body)+2)
			toks = append(toks, types.Token{Kind: types.TokenGroupOpen, Text: open})
			toks = append(toks, body...)
			toks = append(toks, types.Token{Kind: types.TokenGroupClose, Text: ")"})
			stream.clause(key.Join, toks...)

		default:
			c.compileLeaf(stream, key, clause)
		}
	}
	return nil
}

// compileLeaf appends the criteria of one leaf clause.
func (c *Compiler) compileLeaf(stream *tokenStream, key types.Key, clause types.Clause) {
	values := nonBlank(clause.Values)
	if len(values) == 0 {
		c.logger.Debug("skipping clause with no values", "key", clause.Key, "line", clause.Line)
		return
	}

	if !key.HasField() && len(values) == 1 {
		if j, ok := types.ParseJoin(values[0]); ok {
			stream.joiner(j)
			return
		}
	}

	chunks := c.buildCriteria(values, key.Field, key.Join, key.Negate)
	if len(chunks) == 1 {
		stream.clause(key.Join, types.Token{Kind: types.TokenCriterion, Text: chunks[0]})
		return
	}

	c.logger.Debug("split oversized clause", "key", clause.Key, "chunks", len(chunks))
	between := joinerToken(chunkJoin(key.Join, key.Negate))
	toks := make([]types.Token, 0, len(chunks)*2+1)
	toks = append(toks, types.Token{Kind: types.TokenGroupOpen, Text: "(", Soft: true})
	for i, chunk := range chunks {
		if i > 0 {
			toks = append(toks, between)
		}
		toks = append(toks, types.Token{Kind: types.TokenCriterion, Text: chunk})
	}
	toks = append(toks, types.Token{Kind: types.TokenGroupClose, Text: ")", Soft: true})
	stream.clause(key.Join, toks...)
}

// nonBlank drops values that render empty: blank ones and ones made only of
// double quotes, which quoteValue strips.
func nonBlank(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.TrimSpace(strings.ReplaceAll(v, `"`, "")) != "" {
			out = append(out, v)
		}
	}
	return out
}
