package crawler

// ProcessedPlayerSet records the players already fetched during one sweep.
// It is not safe for concurrent use; sweeps are sequential.
type ProcessedPlayerSet struct {
	ids map[int]struct{}
}

func NewProcessedPlayerSet() *ProcessedPlayerSet {
	return &ProcessedPlayerSet{ids: make(map[int]struct{})}
}

// Has reports whether id was already processed
func (s *ProcessedPlayerSet) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// Add marks id as processed and reports whether it was new
func (s *ProcessedPlayerSet) Add(id int) bool {
	if s.Has(id) {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// AddNew marks ids as processed and returns the ones not seen before, in order
func (s *ProcessedPlayerSet) AddNew(ids []int) []int {
	var fresh []int
	for _, id := range ids {
		if s.Add(id) {
			fresh = append(fresh, id)
		}
	}
	return fresh
}

func (s *ProcessedPlayerSet) Len() int {
	return len(s.ids)
}
