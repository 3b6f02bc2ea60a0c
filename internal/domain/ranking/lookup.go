package ranking

// Lookup selects how FindOne resolves a row. It is one of ByRank, ByPlayer
// or Both.
type Lookup interface {
	isLookup()
}

// ByRank resolves the player holding Position.
type ByRank struct {
	Position int
}

// ByPlayer resolves the current rank of PlayerID.
type ByPlayer struct {
	PlayerID PlayerID
}

// Both resolves Position and requires it to be held by PlayerID.
type Both struct {
	Position int
	PlayerID PlayerID
}

func (ByRank) isLookup()   {}
func (ByPlayer) isLookup() {}
func (Both) isLookup()     {}
