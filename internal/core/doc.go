// Package core provides the reconciliation logic for mirroring source rows.
//
// This package holds all domain logic independent of any transport or storage
// backend. The CLI, the HTTP server and tests drive it through [Service] or
// directly through [Engine].
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Cells: raw source values decoded into [CellValue] (Integer or Text).
//   - Layout: a [ColumnLayout] maps a [Row] to a [DomainRecord].
//   - Engine: one pass upserts every accepted record and then deletes the
//     stored keys the pass did not observe.
//   - Service: serialises passes, keeps their history and runs the scheduler.
//
// # Sync Pass
//
// A pass reads the whole payload before touching the store:
//
//  1. The [Source] fetches and decodes every row; one bad cell aborts the pass
//  2. Header rows are dropped ([DefaultHeaderRows])
//  3. Each row is mapped; short or keyless rows are skipped and rows whose
//     status is [ExcludedStatus] are left out of the observed key set
//  4. Accepted records are created or merged with [Merge]
//  5. One [Store.DeleteWhereKeyNotIn] call removes everything else
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SYNC001-SYNC003: Pass errors (in progress, deletion, row writes)
//   - DEC001: Decode errors
//   - SRC001-SRC004: Source errors (token, access, missing sheet or file)
//   - DB001-DB006: Database errors
package core
