package storage

// NotFoundError is returned when a session record doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "session not found"
	}

	return "session not found: " + e.ID
}
