package smm

// Component is one provider sub-order of a combo order.
type Component struct {
	Provider Provider `json:"provider"`
	OrderID  string   `json:"order_id"`
	Status   Status   `json:"status,omitempty"`
}

// AggregateCombo derives the parent status of a combo order from its
// components. The second result is false when the mix is not covered by any
// rule and the parent must keep its stored status.
//
// Rules, first match wins:
//   - every component completed: completed
//   - any component pending, in progress or processing: processing
//   - any component canceled or refunded: partial
//   - any component partial: partial
//
// A combo whose components are all canceled still aggregates to partial.
func AggregateCombo(statuses []Status) (Status, bool) {
	if len(statuses) == 0 {
		return StatusUnknown, false
	}

	allCompleted := true
	var active, cancelled, partial bool
	for _, s := range statuses {
		if s != StatusCompleted {
			allCompleted = false
		}
		switch {
		case s.Active():
			active = true
		case s == StatusCanceled || s == StatusRefunds:
			cancelled = true
		case s == StatusPartial:
			partial = true
		}
	}

	switch {
	case allCompleted:
		return StatusCompleted, true
	case active:
		return StatusProcessing, true
	case cancelled:
		return StatusPartial, true
	case partial:
		return StatusPartial, true
	}
	return StatusUnknown, false
}
