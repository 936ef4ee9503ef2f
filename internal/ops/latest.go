package ops

// LatestInput contains parameters for the Latest operation.
type LatestInput struct {
	Type           string // optional filter
	IncludeContent bool   // default: false
}

// LatestOutput contains the result of the Latest operation.
type LatestOutput struct {
	Item *FetchOutput `json:"item"` // nil if there are no captures
}

// Latest retrieves the most recent capture.
func Latest(d *Deps, input LatestInput) (*LatestOutput, error) {
	entries, err := filteredEntries(d, input.Type, "", "")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &LatestOutput{Item: nil}, nil
	}
	return &LatestOutput{Item: buildFetchOutput(d.Config, &entries[0], input.IncludeContent)}, nil
}
