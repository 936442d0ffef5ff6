// Package document loads filter documents into the types.Document tree.
//
// Documents are YAML (JSON is accepted by the same parser). Decoding works
// on yaml.Node so label order and clause order follow the source file.
package document

import (
	"fmt"
	"os"

	"github.com/solatis/gfb/internal/types"
	"gopkg.in/yaml.v3"
)

/*
 * Document shape.
 *
 *   <label>:
 *     data:
 *       - or-from: [a@x.com, b@y.com]   # mapping -> Section of clauses
 *       - and                           # scalar  -> joiner Section
 *       - and-section-not:              # list of mappings -> group Clause
 *           - or-subject: sale
 *     actions: [archive, mark-read]     # list or a single scalar
 *
 * A clause value is a leaf when it is a scalar, null or a list of scalars,
 * and a group when it is a list containing mappings. Scalars inside a group
 * list are joiner sections. Any other shape is a DocumentError carrying the
 * source line.
 */

const (
	keyData    = "data"
	keyActions = "actions"
)

// Load validates path, reads it and parses the document.
func Load(path string) (*types.Document, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filter document: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON filter document.
func Parse(data []byte) (*types.Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &types.DocumentError{Reason: err.Error()}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, &types.DocumentError{Reason: "document is empty"}
	}

	top := resolve(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, &types.DocumentError{Line: top.Line, Reason: "document must map label names to filters"}
	}

	doc := &types.Document{Filters: make([]types.FilterSpec, 0, len(top.Content)/2)}
	seen := make(map[string]int, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		keyNode, valueNode := resolve(top.Content[i]), resolve(top.Content[i+1])
		if keyNode.Kind != yaml.ScalarNode || keyNode.Value == "" {
			return nil, &types.DocumentError{Line: keyNode.Line, Reason: "label name must be a non-empty scalar"}
		}
		if line, dup := seen[keyNode.Value]; dup {
			return nil, &types.DocumentError{
				Line:   keyNode.Line,
				Reason: fmt.Sprintf("label %q already defined on line %d", keyNode.Value, line),
			}
		}
		seen[keyNode.Value] = keyNode.Line

		spec, err := parseFilter(keyNode.Value, valueNode)
		if err != nil {
			return nil, err
		}
		doc.Filters = append(doc.Filters, spec)
	}
	return doc, nil
}

// parseFilter decodes the {data, actions} mapping of one label.
func parseFilter(label string, n *yaml.Node) (types.FilterSpec, error) {
	spec := types.FilterSpec{Label: label}
	if n.Kind != yaml.MappingNode {
		return spec, &types.DocumentError{Line: n.Line, Reason: fmt.Sprintf("filter %q must be a mapping with a data key", label)}
	}

	hasData := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), resolve(n.Content[i+1])
		switch k.Value {
		case keyData:
			sections, err := parseSections(v)
			if err != nil {
				return spec, err
			}
			spec.Data = sections
			hasData = true
		case keyActions:
			actions, err := scalars(v)
			if err != nil {
				return spec, err
			}
			spec.Actions = actions
		default:
			return spec, &types.DocumentError{Line: k.Line, Reason: fmt.Sprintf("filter %q has unknown key %q", label, k.Value)}
		}
	}
	if !hasData {
		return spec, &types.DocumentError{Line: n.Line, Reason: fmt.Sprintf("filter %q has no data", label)}
	}
	return spec, nil
}

// parseSections decodes a sequence of sections (the data list or a group body).
func parseSections(n *yaml.Node) ([]types.Section, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, &types.DocumentError{Line: n.Line, Reason: "data must be a list of sections"}
	}

	sections := make([]types.Section, 0, len(n.Content))
	for _, item := range n.Content {
		item = resolve(item)
		switch item.Kind {
		case yaml.ScalarNode:
			sections = append(sections, types.Section{Joiner: item.Value})
		case yaml.MappingNode:
			clauses, err := parseClauses(item)
			if err != nil {
				return nil, err
			}
			sections = append(sections, types.Section{Clauses: clauses})
		default:
			return nil, &types.DocumentError{Line: item.Line, Reason: "section must be a mapping or a joiner word"}
		}
	}
	return sections, nil
}

// parseClauses decodes one section mapping, keeping key order.
func parseClauses(n *yaml.Node) ([]types.Clause, error) {
	clauses := make([]types.Clause, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), resolve(n.Content[i+1])
		if k.Kind != yaml.ScalarNode {
			return nil, &types.DocumentError{Line: k.Line, Reason: "clause key must be a scalar"}
		}

		clause := types.Clause{Key: k.Value, Line: k.Line}
		if isGroup(v) {
			groups, err := parseSections(v)
			if err != nil {
				return nil, err
			}
			clause.Kind = types.ClauseGroup
			clause.Groups = groups
		} else {
			values, err := scalars(v)
			if err != nil {
				return nil, err
			}
			clause.Kind = types.ClauseLeaf
			clause.Values = values
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// isGroup reports whether a clause value is a list holding at least one mapping.
func isGroup(n *yaml.Node) bool {
	if n.Kind != yaml.SequenceNode {
		return false
	}
	for _, item := range n.Content {
		if resolve(item).Kind == yaml.MappingNode {
			return true
		}
	}
	return false
}

// scalars decodes a scalar, null or list of scalars into a value list.
func scalars(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		values := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolve(item)
			if item.Kind != yaml.ScalarNode {
				return nil, &types.DocumentError{Line: item.Line, Reason: "value lists must not be nested"}
			}
			if item.Tag == "!!null" {
				continue
			}
			values = append(values, item.Value)
		}
		return values, nil
	default:
		return nil, &types.DocumentError{Line: n.Line, Reason: "expected a value or a list of values"}
	}
}

// resolve follows aliases to their anchored node.
func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
