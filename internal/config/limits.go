package config

import "time"

const (
	// DefaultMaxRounds is the hard ceiling on discussion rounds.
	// Synthesis is forced once this many rounds have completed,
	// regardless of the judge's verdict.
	DefaultMaxRounds = 4

	// MaxQuestionLength bounds user questions. Limited to 4000 to keep
	// prompts well inside model context windows.
	MaxQuestionLength = 4000

	// DefaultMaxTokens is the per-call completion budget when a persona
	// does not override it.
	DefaultMaxTokens = 2048

	// DefaultCacheMaxEntries bounds the response cache. Eviction kicks
	// in once the cache reaches this size.
	DefaultCacheMaxEntries = 256

	// DefaultCacheTTL is how long a cached model response stays valid.
	DefaultCacheTTL = 30 * time.Minute

	// CacheSweepInterval is how often the background sweeper evicts
	// expired entries.
	CacheSweepInterval = 5 * time.Minute

	// DefaultMaxRetries is the retry budget for transient model errors.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay seeds the exponential backoff between
	// retries of a failed model call.
	DefaultRetryBaseDelay = 500 * time.Millisecond

	// DefaultLogMaxFiles caps the number of timestamped log files kept
	// when LOG_DIR is configured.
	DefaultLogMaxFiles = 10

	// ConsensusConfidenceFloor is the minimum judge confidence (0-100)
	// that allows a consensus verdict to end the discussion early.
	ConsensusConfidenceFloor = 80

	// MinRoundsBeforeConsensus is the number of completed rounds
	// required before a consensus verdict can terminate the discussion.
	MinRoundsBeforeConsensus = 3
)
