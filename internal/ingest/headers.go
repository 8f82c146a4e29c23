package ingest

import "fmt"

// applyDuplicatePolicy renames repeated column names in place.
//
// Under DuplicateSuffix (the default) the first occurrence keeps its name
// and later ones become name_2, name_3, ... skipping any candidate that is
// already taken by another column. DuplicateOverwrite leaves names alone.
func applyDuplicatePolicy(cols []Column, policy DuplicatePolicy) {
	if policy == DuplicateOverwrite {
		return
	}

	taken := make(map[string]bool, len(cols))
	for _, c := range cols {
		taken[c.Name] = true
	}

	seen := make(map[string]int, len(cols))
	for i := range cols {
		name := cols[i].Name
		seen[name]++
		if seen[name] == 1 {
			continue
		}
		n := seen[name]
		candidate := fmt.Sprintf("%s_%d", name, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen[name] = n
		taken[candidate] = true
		cols[i].Name = candidate
	}
}
