package ranking

import (
	"strconv"
	"strings"
)

// PlayerID identifies a tracked player. Ids are numeric; text coming from
// outside the process goes through ParsePlayerID.
type PlayerID int64

// String implements fmt.Stringer.
func (id PlayerID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParsePlayerID converts external text into a PlayerID. Anything that is not
// a base-10 integer is rejected with a *ValidationError.
func ParsePlayerID(s string) (PlayerID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "playerId", Value: s, Err: ErrPlayerIDNotNumeric}
	}
	return PlayerID(v), nil
}
