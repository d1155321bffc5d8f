package request

// Status tracks a request's lifecycle state.
type Status string

const (
	StatusPending            Status = "pending"
	StatusQueued             Status = "queued"
	StatusSubmitted          Status = "submitted"
	StatusDownloading        Status = "downloading"
	StatusAvailable          Status = "available"
	StatusPartiallyAvailable Status = "partially_available"
	StatusDenied             Status = "denied"
	StatusFailed             Status = "failed"
	StatusAlreadyExists      Status = "already_exists"
	StatusRemoved            Status = "removed"
)

// ItemStatus tracks one item's state.
type ItemStatus string

const (
	ItemPending     ItemStatus = "pending"
	ItemSubmitted   ItemStatus = "submitted"
	ItemDownloading ItemStatus = "downloading"
	ItemAvailable   ItemStatus = "available"
	ItemFailed      ItemStatus = "failed"
	ItemRemoved     ItemStatus = "removed"
)

// validTransitions defines allowed request state transitions.
// Key is the "from" status, value is the list of valid "to" statuses.
// Every status may move to removed (user deletion).
var validTransitions = map[Status][]Status{
	StatusPending:            {StatusPending, StatusQueued, StatusSubmitted, StatusDenied, StatusFailed, StatusAlreadyExists, StatusRemoved},
	StatusQueued:             {StatusSubmitted, StatusFailed, StatusRemoved},
	StatusSubmitted:          {StatusDownloading, StatusAvailable, StatusPartiallyAvailable, StatusFailed, StatusRemoved},
	StatusDownloading:        {StatusDownloading, StatusAvailable, StatusPartiallyAvailable, StatusFailed, StatusRemoved},
	StatusPartiallyAvailable: {StatusPartiallyAvailable, StatusDownloading, StatusAvailable, StatusFailed, StatusRemoved},
	StatusAvailable:          {StatusRemoved},
	StatusDenied:             {StatusRemoved},
	StatusFailed:             {StatusRemoved},
	StatusAlreadyExists:      {StatusRemoved},
	StatusRemoved:            {},
}

// CanTransitionTo returns true if moving from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	valid, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status has reached its end state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAvailable, StatusDenied, StatusFailed, StatusAlreadyExists, StatusRemoved:
		return true
	}
	return false
}

// IsActive reports whether a request in this status still claims its
// (season, episode) pairs for duplicate checking.
func (s Status) IsActive() bool {
	switch s {
	case StatusDenied, StatusFailed, StatusRemoved:
		return false
	}
	return true
}
