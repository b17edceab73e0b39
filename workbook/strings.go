package workbook

// StringTable interns the text of string cells and error messages so
// repeated values share one copy. entries are reference counted and
// dropped when the last cell holding them is cleared.
type StringTable struct {
	ids   map[string]uint32
	texts map[uint32]string
	refs  map[uint32]int
	next  uint32
}

// NewStringTable creates an empty string table
func NewStringTable() *StringTable {
	return &StringTable{
		ids:   make(map[string]uint32),
		texts: make(map[uint32]string),
		refs:  make(map[uint32]int),
		next:  1, // 0 means no string
	}
}

// Intern returns the id of s, adding it or taking another reference
func (st *StringTable) Intern(s string) uint32 {
	if id, ok := st.ids[s]; ok {
		st.refs[id]++
		return id
	}
	id := st.next
	st.next++
	st.ids[s] = id
	st.texts[id] = s
	st.refs[id] = 1
	return id
}

// Text returns the string behind an id
func (st *StringTable) Text(id uint32) (string, bool) {
	s, ok := st.texts[id]
	return s, ok
}

// Release drops one reference to id and reports whether the string was
// removed
func (st *StringTable) Release(id uint32) bool {
	s, ok := st.texts[id]
	if !ok {
		return false
	}
	st.refs[id]--
	if st.refs[id] > 0 {
		return false
	}
	delete(st.ids, s)
	delete(st.texts, id)
	delete(st.refs, id)
	return true
}

// References returns how many cells hold id
func (st *StringTable) References(id uint32) int {
	return st.refs[id]
}

// Len returns the number of distinct strings
func (st *StringTable) Len() int {
	return len(st.ids)
}
