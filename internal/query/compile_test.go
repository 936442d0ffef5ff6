// internal/query/compile_test.go
package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/gfb/internal/types"
)

func leaf(key string, values ...string) types.Clause {
	return types.Clause{Key: key, Kind: types.ClauseLeaf, Values: values}
}

func group(key string, sections ...types.Section) types.Clause {
	return types.Clause{Key: key, Kind: types.ClauseGroup, Groups: sections}
}

func section(clauses ...types.Clause) types.Section {
	return types.Section{Clauses: clauses}
}

func joiner(word string) types.Section {
	return types.Section{Joiner: word}
}

// assertBalanced fails when group markers do not balance.
func assertBalanced(t *testing.T, tokens []types.Token) {
	t.Helper()
	depth := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case types.TokenGroupOpen:
			depth++
		case types.TokenGroupClose:
			depth--
		}
		if depth < 0 {
			t.Fatalf("group close without open in %q", types.Render(tokens))
		}
	}
	if depth != 0 {
		t.Fatalf("unbalanced group markers in %q", types.Render(tokens))
	}
}

func TestCompileSections(t *testing.T) {
	c := newTestCompiler(t, 600, nil)

	tests := []struct {
		name string
		data []types.Section
		want string
	}{
		{
			name: "single leaf",
			data: []types.Section{section(leaf("or-from", "a@x.com", "b@y.com"))},
			want: `from:("a@x.com" OR "b@y.com")`,
		},
		{
			name: "second clause carries its join",
			data: []types.Section{
				section(leaf("or-from", "a@x.com")),
				section(leaf("and-subject", "report")),
			},
			want: `from:("a@x.com") AND subject:("report")`,
		},
		{
			name: "clauses of one mapping",
			data: []types.Section{section(leaf("or-from", "a@x.com"), leaf("or-to", "b@y.com"))},
			want: `from:("a@x.com") OR to:("b@y.com")`,
		},
		{
			name: "explicit joiner literal wins",
			data: []types.Section{
				section(leaf("or-from", "a@x.com")),
				joiner("and"),
				section(leaf("or-to", "b@y.com")),
			},
			want: `from:("a@x.com") AND to:("b@y.com")`,
		},
		{
			name: "field-less joiner value",
			data: []types.Section{
				section(leaf("or-from", "a@x.com")),
				section(leaf("or", "and")),
				section(leaf("or-to", "b@y.com")),
			},
			want: `from:("a@x.com") AND to:("b@y.com")`,
		},
		{
			name: "leading and trailing joiners dropped",
			data: []types.Section{
				joiner("or"),
				section(leaf("or-from", "a@x.com")),
				joiner("and"),
			},
			want: `from:("a@x.com")`,
		},
		{
			name: "nested group",
			data: []types.Section{
				section(leaf("or-from", "a@x.com")),
				section(group("or-section",
					section(leaf("or-to", "b@y.com")),
					section(leaf("and-subject", "invoice")),
				)),
			},
			want: `from:("a@x.com") OR (to:("b@y.com") AND subject:("invoice"))`,
		},
		{
			name: "negated group",
			data: []types.Section{
				section(leaf("or-list", "news@x.com")),
				section(group("and-section-not", section(leaf("or-subject", "sale")))),
			},
			want: `list:("news@x.com") AND -(subject:("sale"))`,
		},
		{
			name: "empty values are a no-op",
			data: []types.Section{
				section(leaf("or-from")),
				section(leaf("or-to", "b@y.com", " ")),
			},
			want: `to:("b@y.com")`,
		},
		{
			name: "empty group is dropped",
			data: []types.Section{
				section(leaf("or-from", "a@x.com")),
				section(group("and-section", section(leaf("or-to")))),
			},
			want: `from:("a@x.com")`,
		},
		{
			name: "free text clause",
			data: []types.Section{
				section(leaf("or-from", "a@x.com")),
				section(leaf("and", "has:attachment")),
			},
			want: `from:("a@x.com") AND HAS:ATTACHMENT`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := c.Tokens(tt.data)
			if err != nil {
				t.Fatalf("Tokens() error = %v, want nil", err)
			}
			assertBalanced(t, tokens)
			if got := types.Render(tokens); got != tt.want {
				t.Errorf("Tokens() rendered %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompileSections_MalformedKey(t *testing.T) {
	c := newTestCompiler(t, 600, nil)

	data := []types.Section{
		section(leaf("or-from", "a@x.com")),
		section(group("or-section", section(leaf("maybe-to", "b@y.com")))),
	}
	_, err := c.Tokens(data)
	if !errors.Is(err, types.ErrMalformedKey) {
		t.Fatalf("Tokens() error = %v, want ErrMalformedKey", err)
	}

	_, err = c.Tokens([]types.Section{joiner("xor")})
	if !errors.Is(err, types.ErrMalformedKey) {
		t.Fatalf("Tokens() error = %v, want ErrMalformedKey for joiner literal", err)
	}
}

func TestCompileSections_SplitClauseInOrContext(t *testing.T) {
	c := newTestCompiler(t, 600, nil)

	data := []types.Section{
		section(leaf("or-from", addresses(100)...)),
		section(leaf("or-to", "b@y.com")),
	}
	tokens, err := c.Tokens(data)
	if err != nil {
		t.Fatalf("Tokens() error = %v, want nil", err)
	}
	assertBalanced(t, tokens)

	for _, tok := range tokens {
		if tok.Kind == types.TokenGroupOpen {
			t.Fatalf("split clause in an OR context should be inlined, got %q", types.Render(tokens))
		}
		if tok.Kind == types.TokenJoiner && tok.Join != types.JoinOr {
			t.Fatalf("unexpected %s joiner in %q", tok.Join, types.Render(tokens))
		}
	}
}

func TestCompileSections_SplitClauseInAndContext(t *testing.T) {
	c := newTestCompiler(t, 600, nil)

	data := []types.Section{
		section(leaf("or-from", addresses(100)...)),
		section(leaf("and-subject", "report")),
	}
	tokens, err := c.Tokens(data)
	if err != nil {
		t.Fatalf("Tokens() error = %v, want nil", err)
	}
	assertBalanced(t, tokens)

	rendered := types.Render(tokens)
	if !strings.HasPrefix(rendered, `(from:(`) || !strings.HasSuffix(rendered, `) AND subject:("report")`) {
		t.Fatalf("split clause next to AND must stay grouped, got %.80s", rendered)
	}
	for _, tok := range tokens {
		if tok.Soft {
			t.Fatalf("soft markers must be resolved, got %+v", tok)
		}
	}

	// Grouped, the clause is indivisible and far above the budget.
	_, err = Split(tokens, c.Budget())
	if !errors.Is(err, types.ErrSectionTooLarge) {
		t.Fatalf("Split() error = %v, want ErrSectionTooLarge", err)
	}
}
