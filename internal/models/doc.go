// Package models defines the domain types shared by the report client.
//
// The package contains two categories of types:
//
// 1. Wire types exchanged with the report backend
//   - [DateRange] : the inclusive range submitted to POST /generate
//   - [ProgressEvent] : one decoded frame from the GET /progress stream
//   - [HistoryEntry] : one generated artifact listed by GET /history
//
// 2. Local ledger entities
//   - [JobRun] : a submitted job and the terminal [Outcome] it reached
//
// [DecodeProgressEvent] is the only place progress payloads are interpreted; it is forgiving about
// numeric fields (percent is coerced and clamped) and strict about shape, returning
// shared.ErrMalformedEvent for frames the subscriber should skip.
package models
