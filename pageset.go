package recdb

import (
	"sort"

	"github.com/spy16/recdb/pager"
)

// pageSet is the sorted set of page ids holding a table's records.
type pageSet []pager.PageID

func (ps pageSet) search(id pager.PageID) (idx int, found bool) {
	L := len(ps)

	idx = sort.Search(L, func(i int) bool {
		return ps[i] >= id
	})
	found = (idx < L) && ps[idx] == id

	return idx, found
}

// insert adds id to the set and reports whether it was not present yet.
func (ps *pageSet) insert(id pager.PageID) bool {
	idx, found := ps.search(id)
	if found {
		return false
	}

	updated := append(*ps, 0)
	copy(updated[idx+1:], updated[idx:])
	updated[idx] = id
	*ps = updated
	return true
}

func (ps pageSet) contains(id pager.PageID) bool {
	_, found := ps.search(id)
	return found
}

func (ps pageSet) ids() []pager.PageID {
	return append([]pager.PageID(nil), ps...)
}
