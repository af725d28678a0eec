package issue

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Quarantined describes an entry of a persisted issue file that was skipped.
type Quarantined struct {
	Index int
	Err   error
}

// LoadResult is the outcome of decoding a persisted issue array.
type LoadResult struct {
	Issues      []Issue
	Quarantined []Quarantined
}

// LoadFile reads a JSON array of issue objects from path.
func LoadFile(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening issues file: %w", err)
	}
	defer f.Close()

	res, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return res, nil
}

// Decode reads a JSON array of issue objects. The document must be an array;
// individual entries that fail to decode or validate are quarantined instead
// of failing the whole load.
func Decode(r io.Reader) (*LoadResult, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding issue array: %w", err)
	}

	res := &LoadResult{Issues: make([]Issue, 0, len(raw))}
	for idx, entry := range raw {
		var iss Issue
		if err := json.Unmarshal(entry, &iss); err != nil {
			res.Quarantined = append(res.Quarantined, Quarantined{Index: idx, Err: fmt.Errorf("decoding entry: %w", err)})
			continue
		}
		if err := iss.Validate(); err != nil {
			res.Quarantined = append(res.Quarantined, Quarantined{Index: idx, Err: err})
			continue
		}
		res.Issues = append(res.Issues, iss)
	}
	return res, nil
}
