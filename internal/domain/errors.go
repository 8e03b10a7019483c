package domain

// StoreError tags a failure reported by the backing store (constraint
// violation, lost connectivity, malformed statement) so that callers can
// tell it apart from argument-parsing and authorization failures, which
// never reach the store.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// WrapStoreError wraps err into a StoreError. A nil err passes through.
func WrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Message: err.Error()}
}
