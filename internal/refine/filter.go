package refine

// FilterOptions controls which refined records are kept.
type FilterOptions struct {
	// MinConfidence is inclusive. Records without a confidence count as 0.
	MinConfidence float64
	// ExcludeNeedsMoreInfo drops records the model flagged as needing more information.
	ExcludeNeedsMoreInfo bool
}

// DefaultFilterOptions returns a 0.7 threshold with needs-more-info records excluded.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{MinConfidence: 0.7, ExcludeNeedsMoreInfo: true}
}

// Filter returns the records that pass every quality check, in input order.
func Filter(records []RefinedQA, opts FilterOptions) []RefinedQA {
	out := make([]RefinedQA, 0, len(records))
	for _, r := range records {
		if keep(r, opts) {
			out = append(out, r)
		}
	}
	return out
}

func keep(r RefinedQA, opts FilterOptions) bool {
	if r.IsError() {
		return false
	}
	if r.ConfidenceValue() < opts.MinConfidence {
		return false
	}
	if opts.ExcludeNeedsMoreInfo && r.NeedsMoreInfo {
		return false
	}
	if r.ExtractedQuestion == "" || r.ExtractedAnswer == "" {
		return false
	}
	return r.ExtractedAnswer != NoClearAnswer
}
