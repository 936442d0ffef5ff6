package query

// FilterCriteria is the criteria part of a Gmail API filter resource.
type FilterCriteria struct {
	Query string `json:"query"`
}

// FilterResource mirrors the Gmail API users.settings.filters resource body.
// One resource is produced per compiled query; all share the same actions.
type FilterResource struct {
	Criteria FilterCriteria `json:"criteria"`
	Action   LabelActions   `json:"action"`
}

// Resources pairs every query of f with the encoded actions and labelID.
// labelID is the remote id of the label; pass "" to omit it.
func (f *CompiledFilter) Resources(labelID string) []FilterResource {
	action := EncodeLabelActions(f.Actions, labelID)
	out := make([]FilterResource, 0, len(f.Queries))
	for _, q := range f.Queries {
		out = append(out, FilterResource{
			Criteria: FilterCriteria{Query: q},
			Action:   action,
		})
	}
	return out
}

// ActionNames returns the document names of the filter's actions.
func (f *CompiledFilter) ActionNames() []string {
	names := make([]string, 0, len(f.Actions))
	for _, a := range f.Actions {
		names = append(names, a.String())
	}
	return names
}
