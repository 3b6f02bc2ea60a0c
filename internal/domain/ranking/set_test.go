package ranking

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestSet(t *testing.T) *Set {
	t.Helper()
	s, err := New(Config{MaxScore: 30, BranchFactor: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	Convey("Given ranking configs", t, func() {
		Convey("When the config is valid", func() {
			s, err := New(Config{MaxScore: 30, BranchFactor: 3})

			Convey("Then the set starts unbuilt and empty", func() {
				So(err, ShouldBeNil)
				So(s.tree, ShouldHaveSameTypeAs, unbuiltTree{})
				So(s.Count(), ShouldEqual, 0)
				So(s.MaxScore(), ShouldEqual, 30)
				So(s.BranchFactor(), ShouldEqual, 3)
			})
		})

		Convey("When max score is not positive", func() {
			_, err := New(Config{MaxScore: 0, BranchFactor: 3})
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})

		Convey("When branch factor is below two", func() {
			_, err := New(Config{MaxScore: 30, BranchFactor: 1})
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestSet_Validation(t *testing.T) {
	Convey("Given a set with max score 30", t, func() {
		s := newTestSet(t)

		Convey("When setting a score above the limit", func() {
			_, err := s.SetScore(34, 1)

			Convey("Then it fails with the score-limit error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldEqual, "score is bigger than the ranking limit")
				So(errors.Is(err, ErrScoreOutOfBounds), ShouldBeTrue)
				So(IsValidation(err), ShouldBeTrue)
			})

			Convey("And the tree stays unbuilt", func() {
				So(s.tree, ShouldHaveSameTypeAs, unbuiltTree{})
				So(s.Count(), ShouldEqual, 0)
			})
		})

		Convey("When setting a negative score", func() {
			_, err := s.SetScore(-1, 1)
			So(errors.Is(err, ErrNegativeScore), ShouldBeTrue)
			So(s.tree, ShouldHaveSameTypeAs, unbuiltTree{})
		})

		Convey("When the player id is not a number", func() {
			_, err := ParsePlayerID("x")

			Convey("Then it fails with the player id error", func() {
				So(err.Error(), ShouldEqual, "playerId must be a number")
				So(errors.Is(err, ErrPlayerIDNotNumeric), ShouldBeTrue)

				var ve *ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, "playerId")
				So(ve.Value, ShouldEqual, "x")
			})

			Convey("And nothing was written", func() {
				So(s.tree, ShouldHaveSameTypeAs, unbuiltTree{})
			})
		})

		Convey("When a tracked player is pushed over the limit", func() {
			_, err := s.SetScore(25, 7)
			So(err, ShouldBeNil)
			_, err = s.AddPlayerPoints(7, 10)

			Convey("Then the old score is kept", func() {
				So(errors.Is(err, ErrScoreOutOfBounds), ShouldBeTrue)
				score, ok := s.Score(7)
				So(ok, ShouldBeTrue)
				So(score, ShouldEqual, 25)
				So(s.Count(), ShouldEqual, 1)
				checkInvariants(t, s)
			})
		})

		Convey("When the max score itself is used", func() {
			pos, err := s.SetScore(30, 1)
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 1)
		})
	})
}

func TestSet_SetScore(t *testing.T) {
	Convey("Given an empty set", t, func() {
		s := newTestSet(t)

		Convey("When inserting players in order, ties keep arrival order", func() {
			scores := []int{4, 2, 3, 10, 10, 30, 3}
			want := []int{1, 2, 2, 1, 2, 1, 6}
			got := make([]int, 0, len(scores))
			for i, score := range scores {
				pos, err := s.SetScore(score, PlayerID(i+1))
				So(err, ShouldBeNil)
				got = append(got, pos)
			}

			So(got, ShouldResemble, want)
			So(s.Count(), ShouldEqual, 7)
			checkInvariants(t, s)
		})

		Convey("When a player is moved to another score", func() {
			_, _ = s.SetScore(10, 1)
			_, _ = s.SetScore(20, 2)
			pos, err := s.SetScore(25, 1)

			Convey("Then it is not duplicated", func() {
				So(err, ShouldBeNil)
				So(pos, ShouldEqual, 1)
				So(s.Count(), ShouldEqual, 2)
				checkInvariants(t, s)
			})
		})

		Convey("When a player re-sets its current score", func() {
			_, _ = s.SetScore(10, 1)
			_, _ = s.SetScore(10, 2)
			pos, err := s.SetScore(10, 1)

			Convey("Then it moves behind earlier arrivals", func() {
				So(err, ShouldBeNil)
				So(pos, ShouldEqual, 2)
				checkInvariants(t, s)
			})
		})

		Convey("When the returned rank is looked up", func() {
			for i, score := range []int{5, 9, 5, 0, 17} {
				pos, err := s.SetScore(score, PlayerID(i+100))
				So(err, ShouldBeNil)

				r, err := s.FindOne(ByRank{Position: pos})
				So(err, ShouldBeNil)
				So(r.PlayerID, ShouldEqual, PlayerID(i+100))
				So(r.Score, ShouldEqual, score)
			}
		})
	})
}

func TestSet_AddPlayerPoints(t *testing.T) {
	Convey("Given an empty set", t, func() {
		s := newTestSet(t)

		Convey("When a player receives zero points", func() {
			r, err := s.AddPlayerPoints(10, 0)

			Convey("Then the player is not ranked", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, Result{Position: 0, Score: 0, PlayerID: 10})
				So(s.Count(), ShouldEqual, 0)
				_, ok := s.Score(10)
				So(ok, ShouldBeFalse)
				So(s.tree, ShouldHaveSameTypeAs, unbuiltTree{})
			})

			Convey("And repeating it changes nothing", func() {
				for i := 0; i < 3; i++ {
					r, err = s.AddPlayerPoints(10, 0)
					So(err, ShouldBeNil)
					So(r.Position, ShouldEqual, 0)
				}
				So(s.Count(), ShouldEqual, 0)
			})

			Convey("And then 10 points", func() {
				r, err = s.AddPlayerPoints(10, 10)
				So(err, ShouldBeNil)
				So(r, ShouldResemble, Result{Position: 1, Score: 10, PlayerID: 10})
				So(s.Count(), ShouldEqual, 1)

				Convey("And zero points again", func() {
					r, err = s.AddPlayerPoints(10, 0)
					So(err, ShouldBeNil)
					So(r, ShouldResemble, Result{Position: 1, Score: 10, PlayerID: 10})
					So(s.Count(), ShouldEqual, 1)
					checkInvariants(t, s)
				})
			})
		})

		Convey("When a player with score 4 receives 10 points", func() {
			r, err := s.AddPlayerPoints(10, 4)
			So(err, ShouldBeNil)
			So(r, ShouldResemble, Result{Position: 1, Score: 4, PlayerID: 10})

			r, err = s.AddPlayerPoints(10, 10)

			Convey("Then the player is updated in place", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, Result{Position: 1, Score: 14, PlayerID: 10})
				So(s.Count(), ShouldEqual, 1)

				found, err := s.FindOne(Both{Position: r.Position, PlayerID: 10})
				So(err, ShouldBeNil)
				So(found.Score, ShouldEqual, 14)
				checkInvariants(t, s)
			})
		})

		Convey("When points bring a tracked player back to zero", func() {
			_, _ = s.AddPlayerPoints(3, 6)
			_, _ = s.AddPlayerPoints(4, 2)
			r, err := s.AddPlayerPoints(3, -6)

			Convey("Then the player leaves the ranking", func() {
				So(err, ShouldBeNil)
				So(r, ShouldResemble, Result{PlayerID: 3})
				So(s.Count(), ShouldEqual, 1)
				_, ok := s.Score(3)
				So(ok, ShouldBeFalse)
				checkInvariants(t, s)
			})
		})

		Convey("When points would go below zero", func() {
			_, _ = s.AddPlayerPoints(3, 2)
			_, err := s.AddPlayerPoints(3, -5)
			So(errors.Is(err, ErrNegativeScore), ShouldBeTrue)
			score, _ := s.Score(3)
			So(score, ShouldEqual, 2)
		})
	})
}

func TestSet_FindOne(t *testing.T) {
	Convey("Given a populated set", t, func() {
		s := newTestSet(t)
		for i, score := range []int{4, 2, 3, 10, 10, 30, 3} {
			_, err := s.SetScore(score, PlayerID(i+1))
			So(err, ShouldBeNil)
		}

		Convey("When looking up by rank", func() {
			wantIDs := []PlayerID{6, 4, 5, 1, 3, 7, 2}
			wantScores := []int{30, 10, 10, 4, 3, 3, 2}
			for i := range wantIDs {
				r, err := s.FindOne(ByRank{Position: i + 1})
				So(err, ShouldBeNil)
				So(r, ShouldResemble, Result{Position: i + 1, Score: wantScores[i], PlayerID: wantIDs[i]})
			}
		})

		Convey("When looking up by player", func() {
			r, err := s.FindOne(ByPlayer{PlayerID: 7})
			So(err, ShouldBeNil)
			So(r, ShouldResemble, Result{Position: 6, Score: 3, PlayerID: 7})
		})

		Convey("When the rank exceeds the population", func() {
			_, err := s.FindOne(ByRank{Position: 8})

			var oor *PositionOutOfRangeError
			So(errors.As(err, &oor), ShouldBeTrue)
			So(oor.Position, ShouldEqual, 8)
			So(oor.Population, ShouldEqual, 7)
			So(errors.Is(err, ErrPositionOutOfRange), ShouldBeTrue)
		})

		Convey("When the rank is not positive", func() {
			_, err := s.FindOne(ByRank{Position: 0})
			So(errors.Is(err, ErrPositionOutOfRange), ShouldBeTrue)
		})

		Convey("When rank and player disagree", func() {
			_, err := s.FindOne(Both{Position: 1, PlayerID: 4})

			var mm *RankMismatchError
			So(errors.As(err, &mm), ShouldBeTrue)
			So(mm.Expected, ShouldEqual, PlayerID(4))
			So(mm.Found, ShouldEqual, PlayerID(6))
			So(errors.Is(err, ErrRankMismatch), ShouldBeTrue)
		})

		Convey("When the player is unknown", func() {
			_, err := s.FindOne(ByPlayer{PlayerID: 99})
			So(errors.Is(err, ErrPlayerNotFound), ShouldBeTrue)
		})
	})

	Convey("Given an empty set", t, func() {
		s := newTestSet(t)

		Convey("Then every rank is out of range", func() {
			_, err := s.FindOne(ByRank{Position: 1})
			So(errors.Is(err, ErrPositionOutOfRange), ShouldBeTrue)
		})
	})
}

func TestSet_RangeAndRemove(t *testing.T) {
	Convey("Given a populated set", t, func() {
		s := newTestSet(t)
		for i, score := range []int{4, 2, 3, 10, 10, 30, 3} {
			_, _ = s.SetScore(score, PlayerID(i+1))
		}

		Convey("When reading a page", func() {
			rows, err := s.Range(2, 3)
			So(err, ShouldBeNil)
			So(rows, ShouldResemble, []Result{
				{Position: 2, Score: 10, PlayerID: 4},
				{Position: 3, Score: 10, PlayerID: 5},
				{Position: 4, Score: 4, PlayerID: 1},
			})
		})

		Convey("When the page runs past the end", func() {
			rows, err := s.Range(6, 10)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[1].PlayerID, ShouldEqual, PlayerID(2))

			rows, err = s.Range(9, 10)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)
		})

		Convey("When the page arguments are invalid", func() {
			_, err := s.Range(1, 0)
			So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
			_, err = s.Range(0, 5)
			So(errors.Is(err, ErrPositionOutOfRange), ShouldBeTrue)
		})

		Convey("When removing a player", func() {
			So(s.Remove(4), ShouldBeTrue)
			So(s.Remove(4), ShouldBeFalse)

			Convey("Then ranks behind it move up", func() {
				r, err := s.FindOne(ByPlayer{PlayerID: 5})
				So(err, ShouldBeNil)
				So(r.Position, ShouldEqual, 2)
				So(s.Count(), ShouldEqual, 6)
				checkInvariants(t, s)
			})
		})
	})
}

// reference ranks players by sorting; arrival counts as a tie-breaker.
type reference struct {
	score   map[PlayerID]int
	arrival map[PlayerID]int
	clock   int
}

func (r *reference) set(id PlayerID, score int) {
	r.clock++
	r.score[id] = score
	r.arrival[id] = r.clock
}

func (r *reference) order() []PlayerID {
	ids := make([]PlayerID, 0, len(r.score))
	for id := range r.score {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if r.score[a] != r.score[b] {
			return r.score[a] > r.score[b]
		}
		return r.arrival[a] < r.arrival[b]
	})
	return ids
}

func TestSet_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
	for _, cfg := range []Config{{MaxScore: 30, BranchFactor: 3}, {MaxScore: 100, BranchFactor: 2}, {MaxScore: 1000, BranchFactor: 16}} {
		s, err := New(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ref := &reference{score: map[PlayerID]int{}, arrival: map[PlayerID]int{}}

		for step := 0; step < 2000; step++ {
			id := PlayerID(rng.Intn(50))
			switch op := rng.Intn(10); {
			case op < 6:
				score := rng.Intn(cfg.MaxScore + 1)
				pos, err := s.SetScore(score, id)
				if err != nil {
					t.Fatalf("SetScore: %v", err)
				}
				ref.set(id, score)
				r, err := s.FindOne(ByRank{Position: pos})
				if err != nil || r.PlayerID != id {
					t.Fatalf("round trip: rank %d holds %v (%v), want %d", pos, r.PlayerID, err, id)
				}
			case op < 9:
				points := rng.Intn(cfg.MaxScore/4+1) - cfg.MaxScore/8
				prior, tracked := ref.score[id]
				next := prior + points
				_, err := s.AddPlayerPoints(id, points)
				switch {
				case next < 0 || next > cfg.MaxScore:
					if !IsValidation(err) {
						t.Fatalf("AddPlayerPoints(%d, %d): want validation error, got %v", id, points, err)
					}
				case next == 0:
					if err != nil {
						t.Fatalf("AddPlayerPoints: %v", err)
					}
					if tracked {
						delete(ref.score, id)
					}
				default:
					if err != nil {
						t.Fatalf("AddPlayerPoints: %v", err)
					}
					ref.set(id, next)
				}
			default:
				_, tracked := ref.score[id]
				if s.Remove(id) != tracked {
					t.Fatalf("Remove(%d) disagreed with reference", id)
				}
				delete(ref.score, id)
			}
		}

		checkInvariants(t, s)
		order := ref.order()
		if s.Count() != len(order) {
			t.Fatalf("count = %d, want %d", s.Count(), len(order))
		}
		for i, id := range order {
			r, err := s.FindOne(ByPlayer{PlayerID: id})
			if err != nil {
				t.Fatalf("FindOne(%d): %v", id, err)
			}
			if r.Position != i+1 || r.Score != ref.score[id] {
				t.Fatalf("player %d: got (%d, %d), want (%d, %d)", id, r.Position, r.Score, i+1, ref.score[id])
			}
		}
		rows, err := s.Range(1, len(order)+5)
		if err != nil {
			t.Fatalf("Range: %v", err)
		}
		if len(rows) != len(order) {
			t.Fatalf("Range returned %d rows, want %d", len(rows), len(order))
		}
		for i, row := range rows {
			if row.PlayerID != order[i] {
				t.Fatalf("Range row %d = %d, want %d", i, row.PlayerID, order[i])
			}
		}
	}
}
