package repository

import "github.com/pollwave/pollwave/internal/errors"

// The repository mints kind-tagged errors so a storage failure that reaches
// the API layer unconverted still maps to the right status code. Services
// match these by identity with errors.Is and translate the common cases to
// their own sentinels.

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation from the service layer.
var ErrNotFound error = errors.NotFound("record not found")

// ErrDuplicateVote is returned when the votes table's (poll_id, fingerprint_id)
// uniqueness constraint rejects an insert. The constraint is the authoritative
// duplicate-vote guard; service-level pre-checks are a fast path only.
var ErrDuplicateVote error = errors.Conflict("vote already recorded for this poll and device")

// ErrDuplicateEmail is returned when registering an admin with an email
// that is already taken.
var ErrDuplicateEmail error = errors.Conflict("email already registered")

// ErrDuplicateOrder is returned when inserting a poll option whose order_num
// already exists within the same poll.
var ErrDuplicateOrder error = errors.Conflict("option order already taken for this poll")
