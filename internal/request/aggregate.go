package request

// Aggregate computes a request's status purely from its items' statuses.
// Precedence, most settled first:
//
//	all removed            -> removed
//	all failed             -> failed
//	all available          -> available
//	some available         -> partially_available
//	any downloading        -> downloading
//	all submitted          -> submitted
//	any submitted          -> submitted
//	otherwise              -> pending
//
// Items already removed or failed are excluded from the progress counts so a
// single failed episode does not hold a request at partially_available
// forever once everything else lands.
func Aggregate(items []*Item) Status {
	if len(items) == 0 {
		return StatusPending
	}

	var removed, failed, available, downloading, submitted, live int
	for _, it := range items {
		switch it.Status {
		case ItemRemoved:
			removed++
			continue
		case ItemFailed:
			failed++
			continue
		case ItemAvailable:
			available++
		case ItemDownloading:
			downloading++
		case ItemSubmitted:
			submitted++
		}
		live++
	}

	switch {
	case removed == len(items):
		return StatusRemoved
	case removed+failed == len(items):
		return StatusFailed
	case live > 0 && available == live:
		return StatusAvailable
	case available > 0:
		return StatusPartiallyAvailable
	case downloading > 0:
		return StatusDownloading
	case submitted > 0:
		return StatusSubmitted
	default:
		return StatusPending
	}
}
