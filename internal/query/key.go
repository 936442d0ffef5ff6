// internal/query/key.go
package query

import (
	"strings"

	"github.com/solatis/gfb/internal/types"
)

/*
 * EncodedKey decoding.
 *
 * Grammar: {join}[-{field}[-not]] where join is "and" or "or" (any case).
 * The key is split on "-" and must yield 1, 2 or 3 parts:
 *   - "or"              -> {OR, "", false}       field-less (free text / joiner literal)
 *   - "or-from"         -> {OR, "from", false}
 *   - "and-subject-not" -> {AND, "subject", true}
 *
 * Field names are lower-cased here; whether a field is recognized is the
 * criteria builder's decision.
 */

// negationMarker is the only accepted third key part.
const negationMarker = "not"

// DecodeKey parses an EncodedKey into its join, field and negation parts.
// Returns *types.MalformedKeyError for any other shape.
func DecodeKey(key string) (types.Key, error) {
	parts := strings.Split(strings.TrimSpace(key), "-")
	if len(parts) < 1 || len(parts) > 3 {
		return types.Key{}, &types.MalformedKeyError{Key: key, Reason: "expected {join}-{field}[-not]"}
	}

	join, ok := types.ParseJoin(parts[0])
	if !ok {
		return types.Key{}, &types.MalformedKeyError{Key: key, Reason: "join must be 'and' or 'or'"}
	}

	decoded := types.Key{Join: join}
	if len(parts) >= 2 {
		decoded.Field = strings.ToLower(strings.TrimSpace(parts[1]))
		if decoded.Field == "" {
			return types.Key{}, &types.MalformedKeyError{Key: key, Reason: "empty field name"}
		}
	}
	if len(parts) == 3 {
		if !strings.EqualFold(strings.TrimSpace(parts[2]), negationMarker) {
			return types.Key{}, &types.MalformedKeyError{Key: key, Reason: "third part must be 'not'"}
		}
		decoded.Negate = true
	}

	return decoded, nil
}
