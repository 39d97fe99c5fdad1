/*
Package storage persists invocation metric records in BoltDB.

Every denoised dispatch produces an InvocationRecord: the raw counters,
the noop noise baseline, the clean difference and the function's result.
The clean_*.json files next to the perf reports are convenient for a
single run; this store is the durable, queryable history behind
GET /invocations/<function>.

# Architecture

	┌──────────────────── INVOCATION STORE ────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐           │
	│  │            Store interface                  │           │
	│  │  SaveInvocation / ListInvocations / Close   │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │            BoltStore                        │           │
	│  │  single-file embedded B+tree (bbolt)        │           │
	│  └──────────────────┬─────────────────────────┘           │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐           │
	│  │  bucket "invocations"                       │           │
	│  │    ├── bucket "matmul"                      │           │
	│  │    │     ├── <ts-nano>-<short_id> → JSON    │           │
	│  │    │     └── ...                            │           │
	│  │    ├── bucket "noop"                        │           │
	│  │    └── bucket "wordcount_count"             │           │
	│  └────────────────────────────────────────────┘           │
	└──────────────────────────────────────────────────────────┘

# Data Layout

  - One nested bucket per function under a single root bucket
  - Keys are "%020d-%s" of (timestamp nanos, short container id):
    zero-padded so lexicographic order is chronological order, suffixed
    so two dispatches in the same nanosecond cannot collide
  - Values are the JSON-encoded InvocationRecord, the same shape the
    clean_*.json files carry

Reads walk the function's bucket with a reverse cursor, so "newest
first, limit N" needs no sorting and touches only N values.

# Core Components

Store:
  - The interface the dispatcher and API consume; nil is a valid
    "history disabled" store at both call sites

BoltStore:
  - NewBoltStore creates the parent directory, opens the database file
    (0600) and ensures the root bucket
  - SaveInvocation is one Update transaction: ensure function bucket,
    marshal, put
  - ListInvocations is one View transaction over the reverse cursor
  - Close releases the file lock; bbolt permits exactly one process

# Usage

Opening and wiring:

	store, err := storage.NewBoltStore(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	disp := dispatcher.New(registry, driver, sampler, store, cfg)

Recording (as the dispatcher does after denoising):

	_ = store.SaveInvocation(&types.InvocationRecord{
		Function:      "matmul",
		Container:     "3fa9c1d2e4b0",
		Timestamp:     time.Now(),
		RawMetrics:    raw,
		NoiseBaseline: noise,
		CleanMetrics:  clean,
		Result:        result,
	})

Querying history:

	records, err := store.ListInvocations("matmul", 20)
	// newest first; empty slice for an unknown function, not an error

# Integration Points

This package integrates with:

  - pkg/dispatcher: persists every denoised dispatch, best effort (a
    store failure is logged and never fails the dispatch)
  - pkg/api: GET /invocations/<function> reads through ListInvocations
  - pkg/types: InvocationRecord is the stored shape
  - cmd/faas: opens the store at startup, closes it at shutdown

# Design Patterns

Interface-With-Nil Pattern:
  - Store consumers treat nil as "persistence disabled", so tests and
    minimal deployments run without a database file

Time-Ordered Key Pattern:
  - Ordering is encoded in the key, so range reads replace indexes;
    bbolt's B+tree gives chronological iteration for free

Transaction-Per-Operation Pattern:
  - Each save and each list is one bbolt transaction; there is no
    cross-call transaction state to manage

# Performance Characteristics

  - SaveInvocation: one fsync'd write transaction, ~1-5ms on local
    disk; dispatch rate in this system is far below bbolt's write
    ceiling
  - ListInvocations: O(limit) value decodes after an O(log n) seek
  - Records are a few KB each; a million invocations is a few GB file
  - bbolt files never shrink on delete; this store only appends

# Troubleshooting

"timeout" or hang on NewBoltStore:
  - Another process holds the file lock — bbolt is single-process.
    Stop the other controller instance or point store_path elsewhere

"failed to create store dir":
  - The configured store_path parent is not writable by the
    controller's user

History missing entries for a function:
  - Dispatches with perf disabled never produce records; only the
    denoising path persists
  - Check for "could not persist invocation record" warnings

Database grows without bound:
  - Expected: the store is append-only history. Rotate by stopping the
    controller, moving the file aside and restarting

# See Also

  - pkg/dispatcher: where records are produced
  - pkg/api: the history endpoint
  - bbolt: https://github.com/etcd-io/bbolt
*/
package storage
