package stmt

import "fmt"

// Action is one of a closed set of named configuration operations that can
// be applied to a statement. They replace free-function manipulators: each
// action dispatches through a lookup table onto the statement's own
// mutating methods.
type Action uint8

const (
	// ActionSync marks the statement for synchronous execution.
	ActionSync Action = iota
	// ActionAsync marks the statement for asynchronous execution.
	ActionAsync
	// ActionStorageDeque selects deque-backed extraction storage.
	ActionStorageDeque
	// ActionStorageVector selects contiguous-array-backed storage.
	ActionStorageVector
	// ActionStorageList selects linked-list-backed storage.
	ActionStorageList
	// ActionReset restores default storage and synchronous execution.
	ActionReset
)

var actionTable = map[Action]func(*Statement) error{
	ActionSync: func(s *Statement) error {
		s.SetAsync(false)
		return nil
	},
	ActionAsync: func(s *Statement) error {
		s.SetAsync(true)
		return nil
	},
	ActionStorageDeque: func(s *Statement) error {
		return s.SetStorage(StorageDeque)
	},
	ActionStorageVector: func(s *Statement) error {
		return s.SetStorage(StorageVector)
	},
	ActionStorageList: func(s *Statement) error {
		return s.SetStorage(StorageList)
	},
	ActionReset: func(s *Statement) error {
		if err := s.SetStorage(StorageDeque); err != nil {
			return err
		}
		s.SetAsync(false)
		return nil
	},
}

// Apply dispatches the given configuration actions in order, stopping at
// the first failure.
func (s *Statement) Apply(actions ...Action) error {
	for _, a := range actions {
		fn, ok := actionTable[a]
		if !ok {
			return fmt.Errorf("unknown configuration action %d", a)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}
