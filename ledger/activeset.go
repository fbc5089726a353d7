package ledger

// ActiveContract is one live contract in an ActiveSet.
type ActiveContract struct {
	ContractID ContractID
	Template   Identifier
	Arguments  Record
	Key        Value
}

// ActiveSet folds creations and archivals into the set of currently live
// contracts. It is a plain in-memory projection: feed it the snapshot
// batches and then every streamed event in order. Not safe for concurrent
// use; wrap it in the consumer's own synchronization if shared.
type ActiveSet struct {
	order     []ContractID
	contracts map[ContractID]ActiveContract
}

// NewActiveSet returns an empty set.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{contracts: make(map[ContractID]ActiveContract)}
}

// Apply folds one event into the set. Creations insert, archivals and
// consuming exercises remove, everything else is a no-op. Duplicate
// creations for a known contract ID overwrite in place; archivals of
// unknown contracts are ignored, so replaying a prefix is harmless.
func (s *ActiveSet) Apply(ev Event) {
	switch e := ev.(type) {
	case CreatedEvent:
		if _, ok := s.contracts[e.ContractID]; !ok {
			s.order = append(s.order, e.ContractID)
		}
		s.contracts[e.ContractID] = ActiveContract{
			ContractID: e.ContractID,
			Template:   e.Template,
			Arguments:  e.Arguments,
			Key:        e.Key,
		}
	case ArchivedEvent:
		s.remove(e.ContractID)
	case ExercisedEvent:
		if e.Consuming {
			s.remove(e.ContractID)
		}
	}
}

// ApplyTransaction folds every event of a transaction, in order.
func (s *ActiveSet) ApplyTransaction(tx Transaction) {
	for _, ev := range tx.Events {
		s.Apply(ev)
	}
}

// Get returns the live contract with the given ID.
func (s *ActiveSet) Get(id ContractID) (ActiveContract, bool) {
	c, ok := s.contracts[id]
	return c, ok
}

// Len returns the number of live contracts.
func (s *ActiveSet) Len() int {
	return len(s.contracts)
}

// Contracts returns the live contracts in first-seen order.
func (s *ActiveSet) Contracts() []ActiveContract {
	out := make([]ActiveContract, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.contracts[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *ActiveSet) remove(id ContractID) {
	if _, ok := s.contracts[id]; !ok {
		return
	}
	delete(s.contracts, id)
	for i, known := range s.order {
		if known == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
