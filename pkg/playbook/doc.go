// Package playbook implements the shared knowledge store for the adaptation
// loop: a set of bullets (textual advice plus usage counters) grouped into
// named sections.
//
// # Bullets and sections
//
// A bullet's identity never changes after creation. Identities are minted
// deterministically from the owning section's first word plus a zero-padded
// monotonically increasing sequence number:
//
//	[design-00007] helpful=3 harmful=0 neutral=1 :: Prefer small interfaces
//
// A section exists exactly as long as it has at least one member; removing a
// section's last bullet removes the section from iteration, and a later add
// recreates it.
//
// # Mutation surface
//
// The playbook owns its collections. All mutation goes through Add, Update,
// Tag, Remove and the batch form ApplyDelta; accessors return copies, never
// aliases of internal state.
//
// ApplyDelta applies a DeltaBatch in order, so later operations may
// reference bullets created earlier in the same batch. Structurally
// incomplete or unrecognized operations are skipped, never fatal; the
// returned ApplyReport counts what was applied and what was skipped and why.
//
// # Rendering
//
// Render produces the exact textual projection fed back into prompts: one
// heading per section in discovery order, one line per bullet. The format
// is part of the contract, not cosmetic.
//
// # Persistence
//
// Snapshot and Restore serialize the full store (bullets, section index,
// identity counter) without loss. FileStore persists snapshots as a JSON
// file with atomic replace; SQLiteStore persists them in a SQLite database.
package playbook
