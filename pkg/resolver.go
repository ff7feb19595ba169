package dupelink

import (
	"iter"
)

// DuplicateGroup represents a group of files with the same hash.
// Files[0] is the reference.
type DuplicateGroup struct {
	Hash      string   `json:"hash"`
	Reference string   `json:"reference"`
	Files     []string `json:"files"`
	Count     int      `json:"count"`
	Size      int64    `json:"size"`
}

// Reclaimable returns the bytes freed if every non-reference member were replaced
func (g DuplicateGroup) Reclaimable() int64 {
	if g.Count < 2 {
		return 0
	}
	return int64(g.Count-1) * g.Size
}

// DuplicateEntry pairs a duplicate with the reference it should point at
type DuplicateEntry struct {
	Reference FileRecord `json:"reference"`
	Duplicate FileRecord `json:"duplicate"`
}

// Resolve turns groups into duplicate entries. The first member of each group
// is the reference, every later member is paired with it in order. Groups with
// fewer than two members produce nothing.
func Resolve(groups iter.Seq2[string, []FileRecord]) []DuplicateEntry {
	var entries []DuplicateEntry
	for _, members := range groups {
		entries = append(entries, EntriesForGroup(members)...)
	}
	return entries
}

// ResolveGroups returns a DuplicateGroup for every group with two or more members
func ResolveGroups(groups iter.Seq2[string, []FileRecord]) []DuplicateGroup {
	var result []DuplicateGroup
	for hash, members := range groups {
		if len(members) < 2 {
			continue
		}
		result = append(result, NewDuplicateGroup(hash, members))
	}
	return result
}

// NewDuplicateGroup builds the report view of one group, members[0] is the reference
func NewDuplicateGroup(hash string, members []FileRecord) DuplicateGroup {
	files := make([]string, len(members))
	for i, rec := range members {
		files[i] = rec.Path
	}
	group := DuplicateGroup{Hash: hash, Files: files, Count: len(files)}
	if len(members) > 0 {
		group.Reference = members[0].Path
		group.Size = members[0].Size
	}
	return group
}

// EntriesForGroup returns the entries of a single group, reference first
func EntriesForGroup(members []FileRecord) []DuplicateEntry {
	if len(members) < 2 {
		return nil
	}
	entries := make([]DuplicateEntry, 0, len(members)-1)
	for _, dup := range members[1:] {
		entries = append(entries, DuplicateEntry{Reference: members[0], Duplicate: dup})
	}
	return entries
}
