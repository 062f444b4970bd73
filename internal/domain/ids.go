package domain

// UserID is the authenticated identity supplied by the upstream identity service.
// We model it as an opaque identifier: its format is controlled by the IdP.
type UserID string

// TripID is an internal identifier for a trip record.
type TripID string

// ExpenseID is an internal identifier for an expense record.
type ExpenseID string

// InviteID is an internal identifier for an invite record.
type InviteID string

// UserSet is an ordered set of user identifiers. Order is insertion order.
type UserSet struct {
	ids   []UserID
	index map[UserID]struct{}
}

func NewUserSet(ids ...UserID) UserSet {
	s := UserSet{index: make(map[UserID]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add appends id unless already present.
func (s *UserSet) Add(id UserID) {
	if s.index == nil {
		s.index = make(map[UserID]struct{})
	}
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s UserSet) Contains(id UserID) bool {
	_, ok := s.index[id]
	return ok
}

func (s UserSet) Len() int { return len(s.ids) }

// Slice returns a copy of the members in insertion order.
func (s UserSet) Slice() []UserID {
	return append([]UserID(nil), s.ids...)
}
