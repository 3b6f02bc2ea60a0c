package testevents

import "time"

// Config holds configuration for the load test.
type Config struct {
	BaseURL       string        // Base URL of the service
	NumCommands   int           // Number of commands to generate
	Players       int           // Distinct players the commands touch
	PlayerBase    int64         // First player id; ids are PlayerBase..PlayerBase+Players-1
	MaxScore      int           // Score bound for generated values, 0 to ask the service
	DuplicateRate float64       // Share of commands sent twice with the same request id
	Seed          uint64        // Generator seed
	TopN          int           // Leaderboard rows to print and rank lookups to spot-check
	PageSize      int           // Leaderboard page size used for the full read
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for the writer to drain
	PollInterval  time.Duration // Interval between /stats polls while draining
	OutputFile    string        // Output file for commands
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Command is the body of POST /commands.
type Command struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"`
	PlayerID  string `json:"player_id"`
	Value     int    `json:"value"`
	Resend    bool   `json:"resend,omitempty"`
}

// Entry represents a leaderboard row.
type Entry struct {
	Position int   `json:"position"`
	Score    int   `json:"score"`
	PlayerID int64 `json:"player_id"`
}

// AckResponse represents the response from command submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ServerStats is the subset of GET /stats the test reads.
type ServerStats struct {
	Started         bool  `json:"started"`
	MaxScore        int   `json:"max_score"`
	BranchFactor    int   `json:"branch_factor"`
	CommandsApplied int64 `json:"commands_applied"`
	CommandsFailed  int64 `json:"commands_failed"`
	Players         int   `json:"players"`
	QueueSize       int   `json:"queue_size"`
}

// Stats holds test statistics.
type Stats struct {
	CommandsGenerated  int
	CommandsSubmitted  int
	CommandsAccepted   int
	CommandsDuplicate  int
	CommandsRejected   int
	CommandsFailed     int
	ExpectedApplied    int
	ExpectedFailed     int
	RankingsRetrieved  int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
