// Package wish implements guest wishes: the at-most-once submission protocol,
// the per-section session state machine, and the live wish list.
//
// A personal-link guest is identified by the normalized form of the name in
// the invitation link (see guest.NameKey). The record ID is derived from the
// invitation and that key, so "same guest, same invitation" always addresses
// the same record:
//
//	wed_123 + "Budi Santoso"  ->  "wed_123:budi_santoso"
//
// Repositories create records with a check-then-write inside a single store
// transaction (or a conditional put where the backend has no transactions).
// Of any number of concurrent attempts for the same record, exactly one
// observes the record absent and writes it; the rest get ErrAlreadyExists and
// the Service re-reads the stored record and reports OutcomeAlreadyPosted.
//
// Anonymous submissions (demo and preview invitations) skip the identity
// check and get a generated ID instead.
package wish
