package raid

import (
	"fmt"
	"slices"
	"sort"
)

// DriveSelector picks physical drives from a configuration. Indices and
// addresses are combined; Unassigned adds every unassigned drive.
type DriveSelector struct {
	Unassigned bool     `json:"unassigned,omitempty"`
	Indices    []int    `json:"indices,omitempty"`
	Addresses  []string `json:"addresses,omitempty"`
}

// Empty reports whether the selector names nothing
func (s DriveSelector) Empty() bool {
	return !s.Unassigned && len(s.Indices) == 0 && len(s.Addresses) == 0
}

// Select resolves a selector to drives, in index order and without
// duplicates. Unresolvable references return *NotFoundError.
func (c AdapterConfiguration) Select(s DriveSelector) ([]PhysicalDrive, error) {
	all := c.Drives()
	picked := make(map[int]PhysicalDrive)

	if s.Unassigned {
		for _, d := range c.Unassigned {
			picked[d.Index] = d
		}
	}
	for _, idx := range s.Indices {
		i := slices.IndexFunc(all, func(d PhysicalDrive) bool { return d.Index == idx })
		if i < 0 {
			return nil, &NotFoundError{What: fmt.Sprintf("drive index %d", idx)}
		}
		picked[idx] = all[i]
	}
	for _, addr := range s.Addresses {
		i := slices.IndexFunc(all, func(d PhysicalDrive) bool { return d.Extra.Address == addr })
		if i < 0 {
			return nil, &NotFoundError{What: fmt.Sprintf("drive %s", addr)}
		}
		picked[all[i].Index] = all[i]
	}

	out := make([]PhysicalDrive, 0, len(picked))
	for _, d := range picked {
		out = append(out, d)
	}
	sortByIndex(out)
	return out, nil
}

func sortByIndex(drives []PhysicalDrive) {
	sort.SliceStable(drives, func(i, j int) bool { return drives[i].Index < drives[j].Index })
}
