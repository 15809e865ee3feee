package intel

import (
	"strings"
	"time"
)

// DefaultMaxBulkSize caps one bulk request unless the caller
// configures a different limit.
const DefaultMaxBulkSize = 100

// BulkEntry is the tagged outcome for one query of a bulk lookup:
// exactly one of Record or Err is set.
type BulkEntry struct {
	Record *Record `json:"record,omitempty"`
	Err    *Error  `json:"error,omitempty"`
}

// Bulk runs an independent lookup per unique valid query and returns
// the outcomes keyed by the original query string. Duplicate literals
// collapse to one entry; syntactically invalid entries are dropped.
func (o *Orchestrator) Bulk(queries []string, maxBulkSize int) (map[string]BulkEntry, error) {
	if _, terr := o.current(); terr != nil {
		return nil, terr
	}
	if maxBulkSize <= 0 {
		return nil, errf(CodeInvalidBulkSize, "maxBulkSize must be a positive integer, got %d", maxBulkSize)
	}
	if len(queries) == 0 {
		return nil, errf(CodeInvalidBulkInput, "bulk input must be a non-empty list of queries")
	}

	seen := make(map[string]struct{}, len(queries))
	unique := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		if kind, _, _ := classifyQuery(q); kind == queryInvalid {
			continue
		}
		unique = append(unique, q)
	}
	if len(unique) == 0 {
		return nil, errf(CodeNoValidBulkEntries, "bulk input contains no valid IP or ASN entries")
	}
	if len(unique) > maxBulkSize {
		return nil, errf(CodeBulkLimitExceeded,
			"bulk input has %d unique valid entries, limit is %d", len(unique), maxBulkSize)
	}

	out := make(map[string]BulkEntry, len(unique))
	for _, q := range unique {
		started := time.Now()
		rec, err := o.Lookup(q, Options{Mask: CategoryAll})
		if err != nil {
			out[q] = BulkEntry{Err: AsError(err)}
			continue
		}
		rec.ElapsedMS = elapsedMS(started)
		out[q] = BulkEntry{Record: rec}
	}
	return out, nil
}
