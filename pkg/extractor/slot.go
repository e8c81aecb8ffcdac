package extractor

// Slot is a rendered position in the carousel list. The list only ever
// renders the previous, current and next items, so the displayed item is
// the first rendered slot at the start, the last at the end, and the second
// everywhere in between.
type Slot int

const (
	SlotFirst Slot = iota
	SlotMiddle
	SlotLast
)

func (s Slot) String() string {
	switch s {
	case SlotFirst:
		return "first"
	case SlotMiddle:
		return "middle"
	case SlotLast:
		return "last"
	default:
		return "unknown"
	}
}

// SlotForIndex returns the slot showing carousel item i of n.
func SlotForIndex(i, n int) Slot {
	switch {
	case i == 0:
		return SlotFirst
	case i == n-1:
		return SlotLast
	default:
		return SlotMiddle
	}
}

// Position maps the slot onto a list of length rendered items. It returns -1
// when the list is empty.
func (s Slot) Position(length int) int {
	if length == 0 {
		return -1
	}
	switch s {
	case SlotFirst:
		return 0
	case SlotLast:
		return length - 1
	default:
		return 1
	}
}
