// internal/query/split_test.go
package query

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/gfb/internal/types"
)

// crit returns a criterion token rendering to exactly n characters.
func crit(tag string, n int) types.Token {
	return types.Token{Kind: types.TokenCriterion, Text: tag + strings.Repeat("x", n-len(tag))}
}

func orTok() types.Token  { return joinerToken(types.JoinOr) }
func andTok() types.Token { return joinerToken(types.JoinAnd) }

func openTok() types.Token  { return types.Token{Kind: types.TokenGroupOpen, Text: "("} }
func closeTok() types.Token { return types.Token{Kind: types.TokenGroupClose, Text: ")"} }

func TestSplit_UnderBudget(t *testing.T) {
	tokens := []types.Token{crit("a", 50), andTok(), crit("b", 50), orTok(), crit("c", 50)}

	got, err := Split(tokens, 600)
	if err != nil {
		t.Fatalf("Split() error = %v, want nil", err)
	}
	if len(got) != 1 || got[0] != types.Render(tokens) {
		t.Errorf("Split() = %v, want the rendered stream unchanged", got)
	}
}

func TestSplit_Empty(t *testing.T) {
	_, err := Split(nil, 600)
	if !errors.Is(err, types.ErrEmptyFilter) {
		t.Fatalf("Split() error = %v, want ErrEmptyFilter", err)
	}
}

func TestSplit_AndUnitsAcrossOr(t *testing.T) {
	// Three AND-bound units of 545 characters, OR-joined.
	var tokens []types.Token
	for i, tag := range []string{"a", "b", "c"} {
		if i > 0 {
			tokens = append(tokens, orTok())
		}
		tokens = append(tokens, crit(tag+"1", 270), andTok(), crit(tag+"2", 270))
	}

	got, err := Split(tokens, 600)
	if err != nil {
		t.Fatalf("Split() error = %v, want nil", err)
	}
	if len(got) != 3 {
		t.Fatalf("Split() returned %d queries, want 3", len(got))
	}
	for i, tag := range []string{"a", "b", "c"} {
		if !strings.HasPrefix(got[i], tag+"1") || !strings.Contains(got[i], " AND "+tag+"2") {
			t.Errorf("query %d = %.40s..., want the %s unit intact", i, got[i], tag)
		}
		if len(got[i]) != 545 {
			t.Errorf("query %d length = %d, want 545", i, len(got[i]))
		}
	}
}

func TestSplit_GreedyPacking(t *testing.T) {
	var tokens []types.Token
	for i, tag := range []string{"u1", "u2", "u3", "u4", "u5"} {
		if i > 0 {
			tokens = append(tokens, orTok())
		}
		tokens = append(tokens, crit(tag, 100))
	}

	got, err := Split(tokens, 300)
	if err != nil {
		t.Fatalf("Split() error = %v, want nil", err)
	}

	want := [][]string{{"u1", "u2"}, {"u3", "u4"}, {"u5"}}
	if len(got) != len(want) {
		t.Fatalf("Split() returned %d queries, want %d: %v", len(got), len(want), got)
	}
	for i, tags := range want {
		parts := strings.Split(got[i], " OR ")
		if len(parts) != len(tags) {
			t.Fatalf("query %d has %d units, want %d", i, len(parts), len(tags))
		}
		for j, tag := range tags {
			if !strings.HasPrefix(parts[j], tag) {
				t.Errorf("query %d unit %d = %.10s..., want %s", i, j, parts[j], tag)
			}
		}
		if len(got[i]) >= 300 {
			t.Errorf("query %d length = %d, want < 300", i, len(got[i]))
		}
	}
}

func TestSplit_GroupTooLarge(t *testing.T) {
	tokens := []types.Token{
		crit("a", 20), orTok(),
		openTok(), crit("g", 648), closeTok(),
	}

	_, err := Split(tokens, 600)
	if !errors.Is(err, types.ErrSectionTooLarge) {
		t.Fatalf("Split() error = %v, want ErrSectionTooLarge", err)
	}
	var tooLarge *types.SectionTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Split() error type = %T, want *SectionTooLargeError", err)
	}
	if tooLarge.Length != 650 {
		t.Errorf("SectionTooLargeError.Length = %d, want 650", tooLarge.Length)
	}
	if tooLarge.Budget != 600 {
		t.Errorf("SectionTooLargeError.Budget = %d, want 600", tooLarge.Budget)
	}
	if !strings.HasPrefix(tooLarge.Section, "(g") {
		t.Errorf("SectionTooLargeError.Section = %.10s..., want the group text", tooLarge.Section)
	}
}

func TestSplit_AndChainTooLarge(t *testing.T) {
	tokens := []types.Token{crit("a", 300), andTok(), crit("b", 300), orTok(), crit("c", 10)}

	_, err := Split(tokens, 600)
	var tooLarge *types.SectionTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Split() error = %v, want *SectionTooLargeError", err)
	}
	if tooLarge.Length != 605 {
		t.Errorf("SectionTooLargeError.Length = %d, want 605", tooLarge.Length)
	}
}

func TestSplit_NestedGroupIsOneUnit(t *testing.T) {
	// ((a OR b) AND c) OR d OR e with a budget that forces a split.
	tokens := []types.Token{
		openTok(),
		openTok(), crit("a", 30), orTok(), crit("b", 30), closeTok(),
		andTok(), crit("c", 30),
		closeTok(),
		orTok(), crit("d", 60),
		orTok(), crit("e", 60),
	}
	group := types.Render(tokens[:9])

	got, err := Split(tokens, 120)
	if err != nil {
		t.Fatalf("Split() error = %v, want nil", err)
	}
	if got[0] != group {
		t.Errorf("first query = %s, want the nested group %s", got[0], group)
	}
	for i, q := range got {
		if len(q) >= 120 {
			t.Errorf("query %d length = %d, want < 120", i, len(q))
		}
		if strings.Count(q, "(") != strings.Count(q, ")") {
			t.Errorf("query %d has unbalanced parentheses: %s", i, q)
		}
	}
	if joined := strings.Join(got, " OR "); joined != types.Render(tokens) {
		t.Errorf("queries do not cover the stream in order:\n got %s\nwant %s", joined, types.Render(tokens))
	}
}
