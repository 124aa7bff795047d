package model

// DuplicatePair says Duplicate lies entirely on Original.
type DuplicatePair struct {
	OriginalHandle  EntityHandle `json:"original_handle"`
	DuplicateHandle EntityHandle `json:"duplicate_handle"`
}

// DuplicateGroup is a connected set of duplicate pairs. Keeper survives;
// every other member is erased once.
type DuplicateGroup struct {
	Keeper     EntityHandle   `json:"keeper"`
	Duplicates []EntityHandle `json:"duplicates"`
}
