package houses

import "fmt"

// rowResult is the outcome of processing one listing row: exactly one
// of House or Failure is set. Row is the 1-based data row index.
type rowResult struct {
	Row     int
	House   *House
	Failure *RowFailure
}

// fold collapses per-row outcomes into an ExtractionResult, preserving
// page order. A house id appearing twice means the upstream markup
// drifted; the first occurrence wins and the later one is reported as a
// row failure rather than silently overwriting.
func fold(results []rowResult) *ExtractionResult {
	out := &ExtractionResult{
		Residences: []House{},
		Failures:   []RowFailure{},
	}
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		switch {
		case r.Failure != nil:
			out.Failures = append(out.Failures, *r.Failure)
		case r.House == nil:
			// Defect in the extractor itself; surface it as a row
			// failure instead of dropping the row silently.
			out.Failures = append(out.Failures, RowFailure{
				Row:    r.Row,
				Reason: "row produced neither a house nor a failure",
			})
		case seen[r.House.ID]:
			out.Failures = append(out.Failures, RowFailure{
				Row:    r.Row,
				Field:  "id",
				Reason: fmt.Sprintf("duplicate house id %d", r.House.ID),
			})
		default:
			seen[r.House.ID] = true
			out.Residences = append(out.Residences, *r.House)
		}
	}
	return out
}
