package storage

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrActorNotFound is returned when the acting user of an operation cannot
// be resolved from its public identifier. Nothing is written in that case.
var ErrActorNotFound = errors.New("storage: actor not found")

// ErrAlreadyExists is returned when a blind-index or natural-key match is
// found where absence was required (duplicate recruitment candidate,
// recommendation, user credential or contract number).
var ErrAlreadyExists = errors.New("storage: already exists")

// ErrRecordsAttached is returned when deleting a user who still owns
// customers, contracts or other records. They must be reassigned or
// deleted first.
var ErrRecordsAttached = errors.New("storage: records still attached")

// ErrAmbiguousOwner is returned when an ownership reassignment target
// display name matches more than one user. The caller must disambiguate;
// guessing would silently hand records to the wrong agent.
var ErrAmbiguousOwner = errors.New("storage: ambiguous owner name")
