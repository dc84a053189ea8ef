package model

// Store holds every atom decomposed from one narrative, in source order
// within each category. It is the single unit the classification pass
// annotates and the selection layer partitions; nothing is ever removed
// from it, only excluded downstream with a reason.
type Store struct {
	Statements []*AtomicStatement `json:"statements"`
	Events     []*Event           `json:"events"`
	Entities   []*Entity          `json:"entities"`
	Quotes     []*SpeechAct       `json:"quotes"`
	Timeline   []*TimelineEntry   `json:"timeline"`
}

// IDs returns every atom ID in the store across all categories.
func (s *Store) IDs() []string {
	ids := make([]string, 0, s.Len())
	for _, st := range s.Statements {
		ids = append(ids, st.ID)
	}
	for _, ev := range s.Events {
		ids = append(ids, ev.ID)
	}
	for _, en := range s.Entities {
		ids = append(ids, en.ID)
	}
	for _, q := range s.Quotes {
		ids = append(ids, q.ID)
	}
	for _, t := range s.Timeline {
		ids = append(ids, t.ID)
	}
	return ids
}

// Len is the total atom count across all categories.
func (s *Store) Len() int {
	return len(s.Statements) + len(s.Events) + len(s.Entities) + len(s.Quotes) + len(s.Timeline)
}

// StatementByID returns the statement with the given ID, or nil.
func (s *Store) StatementByID(id string) *AtomicStatement {
	for _, st := range s.Statements {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// EventByID returns the event with the given ID, or nil.
func (s *Store) EventByID(id string) *Event {
	for _, ev := range s.Events {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

// EntityByID returns the entity with the given ID, or nil.
func (s *Store) EntityByID(id string) *Entity {
	for _, en := range s.Entities {
		if en.ID == id {
			return en
		}
	}
	return nil
}

// EntityByLabel returns the first entity whose label matches, or nil.
func (s *Store) EntityByLabel(label string) *Entity {
	for _, en := range s.Entities {
		if en.Label == label {
			return en
		}
	}
	return nil
}

// QuoteByID returns the speech act with the given ID, or nil.
func (s *Store) QuoteByID(id string) *SpeechAct {
	for _, q := range s.Quotes {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// TimelineByID returns the timeline entry with the given ID, or nil.
func (s *Store) TimelineByID(id string) *TimelineEntry {
	for _, t := range s.Timeline {
		if t.ID == id {
			return t
		}
	}
	return nil
}
