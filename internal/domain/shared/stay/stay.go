package stay

// GuestCounts describes the party size for a stay request.
type GuestCounts struct {
	Adults   int
	Children int
}

func (g GuestCounts) Total() int {
	return g.Adults + g.Children
}

func (g GuestCounts) Valid() bool {
	return g.Adults >= 1 && g.Children >= 0
}
