package masspoint

// SkipSet holds mass points that must stay out of every combination built
// from the current branch. It keeps insertion order and ignores repeats.
// The zero value is empty and ready to use.
type SkipSet struct {
	order []MassPoint
	index map[MassPoint]struct{}
}

// NewSkipSet returns a set holding points.
func NewSkipSet(points ...MassPoint) *SkipSet {
	s := &SkipSet{}
	for _, p := range points {
		s.Add(p)
	}
	return s
}

// Add inserts p and reports whether it was new.
func (s *SkipSet) Add(p MassPoint) bool {
	if s.index == nil {
		s.index = make(map[MassPoint]struct{})
	}
	if _, ok := s.index[p]; ok {
		return false
	}
	s.index[p] = struct{}{}
	s.order = append(s.order, p)
	return true
}

// Contains reports whether p is in the set. A nil set is empty.
func (s *SkipSet) Contains(p MassPoint) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[p]
	return ok
}

// Merge adds every point of other.
func (s *SkipSet) Merge(other *SkipSet) {
	if other == nil {
		return
	}
	for _, p := range other.order {
		s.Add(p)
	}
}

// Points returns the points in insertion order.
func (s *SkipSet) Points() []MassPoint {
	if s == nil {
		return nil
	}
	return append([]MassPoint(nil), s.order...)
}

// Len returns the number of points.
func (s *SkipSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Filter returns the points of ps that are not in s, keeping their order.
func (s *SkipSet) Filter(ps []MassPoint) []MassPoint {
	out := make([]MassPoint, 0, len(ps))
	for _, p := range ps {
		if !s.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}
