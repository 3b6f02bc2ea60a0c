package ranking

// rankIndex maps a tracked player to its current score. It is owned by a
// single Set and never shared.
type rankIndex struct {
	scores map[PlayerID]int
}

func newRankIndex() rankIndex {
	return rankIndex{scores: make(map[PlayerID]int)}
}

func (x rankIndex) get(id PlayerID) (int, bool) {
	score, ok := x.scores[id]
	return score, ok
}

func (x rankIndex) set(id PlayerID, score int) { x.scores[id] = score }

func (x rankIndex) delete(id PlayerID) { delete(x.scores, id) }

func (x rankIndex) len() int { return len(x.scores) }
