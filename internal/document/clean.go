package document

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/solatis/gfb/internal/types"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Address fields whose values the cleaner sorts by mail domain.
var addressFields = map[string]bool{"from": true, "to": true, "cc": true, "bcc": true}

var (
	nonAddressChars = regexp.MustCompile(`[^\w.@]`)
	wordPattern     = regexp.MustCompile(`\w+`)
)

// Clean parses data, sorts address lists by domain and re-encodes the document.
// Comments and key order are preserved.
func Clean(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &types.DocumentError{Reason: err.Error()}
	}
	if len(root.Content) == 0 {
		return nil, &types.DocumentError{Reason: "document is empty"}
	}

	SortByDomain(&root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to encode cleaned document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode cleaned document: %w", err)
	}
	return buf.Bytes(), nil
}

// SortByDomain sorts, in place, the values of every from/to/cc/bcc leaf
// clause below n by domain. Everything else is left untouched.
func SortByDomain(n *yaml.Node) {
	col := collate.New(language.Und, collate.IgnoreCase)
	walk(n, col)
}

func walk(n *yaml.Node, col *collate.Collator) {
	n = resolve(n)
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			walk(c, col)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := resolve(n.Content[i]), resolve(n.Content[i+1])
			if k.Kind == yaml.ScalarNode && isAddressKey(k.Value) && v.Kind == yaml.SequenceNode && !isGroup(v) {
				sortValues(v, col)
				continue
			}
			walk(v, col)
		}
	}
}

// isAddressKey reports whether an EncodedKey names an address field.
func isAddressKey(key string) bool {
	parts := strings.Split(key, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return false
	}
	return addressFields[strings.ToLower(parts[1])]
}

func sortValues(seq *yaml.Node, col *collate.Collator) {
	keys := make(map[*yaml.Node]string, len(seq.Content))
	for _, item := range seq.Content {
		keys[item] = DomainKey(resolve(item).Value)
	}
	sort.SliceStable(seq.Content, func(i, j int) bool {
		a, b := seq.Content[i], seq.Content[j]
		if c := col.CompareString(keys[a], keys[b]); c != 0 {
			return c < 0
		}
		return col.CompareString(resolve(a).Value, resolve(b).Value) < 0
	})
}

// DomainKey returns the sort key of an address: the second-to-last word of
// the cleaned address (the domain name without its TLD), or its only word.
func DomainKey(address string) string {
	words := wordPattern.FindAllString(nonAddressChars.ReplaceAllString(address, ""), -1)
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	default:
		return words[len(words)-2]
	}
}
