package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rankset/internal/adapters/http/api"
	"github.com/okian/rankset/internal/adapters/repository"
	"github.com/okian/rankset/internal/domain/dedupe"
	"github.com/okian/rankset/internal/domain/model"
	"github.com/okian/rankset/internal/domain/ranking"
	"github.com/okian/rankset/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testDeps backs the handlers with a real store and records enqueued commands.
type testDeps struct {
	dedupe.Deduper
	store *repository.LockedStore

	mu         sync.Mutex
	enqueueErr error
	enqueued   []model.Command
	pageErr    error
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	store, err := repository.NewLockedStore(context.Background(), ranking.Config{MaxScore: 100, BranchFactor: 4})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return &testDeps{Deduper: dedupe.NewInMemoryDeduper(), store: store}
}

func toEntry(r ranking.Result) api.Entry {
	return api.Entry{Position: r.Position, Score: r.Score, PlayerID: int64(r.PlayerID)}
}

func (d *testDeps) SetScore(ctx context.Context, playerID string, score int) (api.Entry, error) {
	pos, err := d.store.SetScore(ctx, playerID, score)
	if err != nil {
		return api.Entry{}, err
	}
	id, _ := ranking.ParsePlayerID(playerID)
	return api.Entry{Position: pos, Score: score, PlayerID: int64(id)}, nil
}

func (d *testDeps) AddPoints(ctx context.Context, playerID string, points int) (api.Entry, error) {
	r, err := d.store.AddPoints(ctx, playerID, points)
	return toEntry(r), err
}

func (d *testDeps) Remove(ctx context.Context, playerID string) (bool, error) {
	return d.store.Remove(ctx, playerID)
}

func (d *testDeps) FindOne(ctx context.Context, position int, playerID string) (api.Entry, error) {
	r, err := d.store.FindOne(ctx, position, playerID)
	return toEntry(r), err
}

func (d *testDeps) Page(ctx context.Context, from, limit int) ([]api.Entry, error) {
	if d.pageErr != nil {
		return nil, d.pageErr
	}
	rows, err := d.store.Page(ctx, from, limit)
	if err != nil {
		return nil, err
	}
	out := make([]api.Entry, len(rows))
	for i, r := range rows {
		out[i] = toEntry(r)
	}
	return out, nil
}

func (d *testDeps) Enqueue(_ context.Context, c model.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enqueueErr != nil {
		return d.enqueueErr
	}
	d.enqueued = append(d.enqueued, c)
	return nil
}

type stubStats struct{}

func (stubStats) GetStats() map[string]any {
	return map[string]any{"players": 0, "max_score": 100}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newMux(t *testing.T, deps *testDeps) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	api.NewServer(deps, stubStats{}, api.WithMaxLeaderboardLimit(10)).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeEntry(w *httptest.ResponseRecorder) api.Entry {
	var e api.Entry
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var e errorBody
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e
}

func TestPlayers(t *testing.T) {
	Convey("Given an API server over [0, 100]", t, func() {
		deps := newTestDeps(t)
		mux := newMux(t, deps)

		Convey("When a score is set", func() {
			w := do(mux, http.MethodPut, "/players/1/score", `{"score":10}`)

			Convey("Then the new row is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(decodeEntry(w), ShouldResemble, api.Entry{Position: 1, Score: 10, PlayerID: 1})
			})

			Convey("And a zero score is accepted", func() {
				w := do(mux, http.MethodPut, "/players/2/score", `{"score":0}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeEntry(w).Position, ShouldEqual, 2)
			})
		})

		Convey("When the player id is not a number", func() {
			w := do(mux, http.MethodPut, "/players/x/score", `{"score":10}`)

			Convey("Then 400 names the offending id", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body.Code, ShouldEqual, "validation_error")
				So(body.Message, ShouldEqual, "playerId must be a number")
			})
		})

		Convey("When the score exceeds the limit", func() {
			w := do(mux, http.MethodPut, "/players/1/score", `{"score":101}`)

			Convey("Then 400 is returned and nothing is stored", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Message, ShouldEqual, "score is bigger than the ranking limit")
				So(deps.store.Count(context.Background()), ShouldEqual, 0)
			})
		})

		Convey("When the body is missing the score", func() {
			So(do(mux, http.MethodPut, "/players/1/score", `{}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPut, "/players/1/score", `{"score":`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the method does not match the route", func() {
			So(do(mux, http.MethodGet, "/players/1/score", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When points are added", func() {
			w := do(mux, http.MethodPost, "/players/3/points", `{"points":4}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeEntry(w), ShouldResemble, api.Entry{Position: 1, Score: 4, PlayerID: 3})

			w = do(mux, http.MethodPost, "/players/3/points", `{"points":10}`)
			So(decodeEntry(w), ShouldResemble, api.Entry{Position: 1, Score: 14, PlayerID: 3})

			Convey("Then returning to zero unranks the player", func() {
				w := do(mux, http.MethodPost, "/players/3/points", `{"points":-14}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeEntry(w), ShouldResemble, api.Entry{Position: 0, Score: 0, PlayerID: 3})
				So(do(mux, http.MethodGet, "/rank/3", "").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then going negative is rejected", func() {
				w := do(mux, http.MethodPost, "/players/3/points", `{"points":-15}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Code, ShouldEqual, "validation_error")
			})
		})

		Convey("When a player is deleted", func() {
			do(mux, http.MethodPut, "/players/5/score", `{"score":50}`)

			So(do(mux, http.MethodDelete, "/players/5", "").Code, ShouldEqual, http.StatusNoContent)

			Convey("Then a second delete is 404", func() {
				w := do(mux, http.MethodDelete, "/players/5", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w).Code, ShouldEqual, "not_found")
			})
		})
	})
}

func TestLookups(t *testing.T) {
	Convey("Given three ranked players", t, func() {
		deps := newTestDeps(t)
		mux := newMux(t, deps)
		do(mux, http.MethodPut, "/players/1/score", `{"score":30}`)
		do(mux, http.MethodPut, "/players/2/score", `{"score":20}`)
		do(mux, http.MethodPut, "/players/3/score", `{"score":20}`)

		Convey("When looking up by player", func() {
			w := do(mux, http.MethodGet, "/rank/3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeEntry(w), ShouldResemble, api.Entry{Position: 3, Score: 20, PlayerID: 3})

			So(do(mux, http.MethodGet, "/rank/99", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/rank/abc", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When looking up by position", func() {
			w := do(mux, http.MethodGet, "/position/2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeEntry(w).PlayerID, ShouldEqual, int64(2))

			w = do(mux, http.MethodGet, "/position/4", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w).Code, ShouldEqual, "position_out_of_range")

			So(do(mux, http.MethodGet, "/position/0", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/position/two", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When cross-checking position and player", func() {
			So(do(mux, http.MethodGet, "/position/1?player_id=1", "").Code, ShouldEqual, http.StatusOK)

			w := do(mux, http.MethodGet, "/position/1?player_id=2", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeError(w).Code, ShouldEqual, "rank_mismatch")
		})

		Convey("When paging the leaderboard", func() {
			w := do(mux, http.MethodGet, "/leaderboard?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var rows []api.Entry
			So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldResemble, []api.Entry{
				{Position: 1, Score: 30, PlayerID: 1},
				{Position: 2, Score: 20, PlayerID: 2},
			})

			w = do(mux, http.MethodGet, "/leaderboard?limit=5&offset=2", "")
			So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldResemble, []api.Entry{{Position: 3, Score: 20, PlayerID: 3}})

			w = do(mux, http.MethodGet, "/leaderboard?limit=5&offset=9", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When the leaderboard query is invalid", func() {
			So(do(mux, http.MethodGet, "/leaderboard", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=1&offset=-1", "").Code, ShouldEqual, http.StatusBadRequest)

			w := do(mux, http.MethodGet, "/leaderboard?limit=11", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Code, ShouldEqual, "limit_exceeded")
		})

		Convey("When the store fails", func() {
			deps.pageErr = errors.New("disk on fire")
			w := do(mux, http.MethodGet, "/leaderboard?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w).Code, ShouldEqual, "internal_error")
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given the async command endpoint", t, func() {
		deps := newTestDeps(t)
		mux := newMux(t, deps)
		body := `{"request_id":"r-1","kind":"set","player_id":"7","value":42}`

		Convey("When a command is submitted", func() {
			w := do(mux, http.MethodPost, "/commands", body)

			Convey("Then it is accepted and queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
				So(len(deps.enqueued), ShouldEqual, 1)
				c := deps.enqueued[0]
				So(c.Kind, ShouldEqual, model.KindSet)
				So(c.PlayerID, ShouldEqual, "7")
				So(c.Value, ShouldEqual, 42)
				So(c.Received.IsZero(), ShouldBeFalse)
			})

			Convey("Then resubmitting it is a duplicate", func() {
				w := do(mux, http.MethodPost, "/commands", body)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the queue pushes back", func() {
			deps.enqueueErr = errors.New("queue full")
			w := do(mux, http.MethodPost, "/commands", body)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeError(w).Code, ShouldEqual, "backpressure")

			Convey("Then the same request id may be retried", func() {
				deps.enqueueErr = nil
				So(do(mux, http.MethodPost, "/commands", body).Code, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When the command is malformed", func() {
			So(do(mux, http.MethodPost, "/commands", `{"kind":"set","player_id":"7"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/commands", `{"request_id":"r","kind":"double","player_id":"7"}`).Code, ShouldEqual, http.StatusBadRequest)

			w := do(mux, http.MethodPost, "/commands", `{"request_id":"r","kind":"add","player_id":"seven","value":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w).Message, ShouldEqual, "playerId must be a number")
			So(deps.Size(), ShouldEqual, int64(0))
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		mux := newMux(t, newTestDeps(t))

		Convey("Then /healthz serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "rankset_ranking_")
		})

		Convey("Then /stats serves the provider snapshot", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["max_score"], ShouldEqual, 100.0)
		})

		Convey("Then /dashboard serves the embedded page", func() {
			w := do(mux, http.MethodGet, "/dashboard", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/leaderboard?limit=25")
		})
	})
}
