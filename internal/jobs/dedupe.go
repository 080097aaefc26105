package jobs

// FilterNew returns the records whose identity is not in known, keeping
// only the first occurrence of any identity duplicated within the
// batch. The two sinks can diverge after a partial failure, so the
// caller runs this once per sink with that sink's own known set; known
// is never mutated.
func FilterNew(records []JobRecord, known map[string]struct{}) []JobRecord {
	seen := make(map[string]struct{}, len(records))
	var fresh []JobRecord
	for _, rec := range records {
		if _, exists := known[rec.Identity]; exists {
			continue
		}
		if _, dup := seen[rec.Identity]; dup {
			continue
		}
		seen[rec.Identity] = struct{}{}
		fresh = append(fresh, rec)
	}
	return fresh
}
