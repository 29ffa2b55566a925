// Package save persists per-save research state.
//
// A [Store] holds at most [MaxSaves] saves. Each save carries a name, the
// [research.State] of its tech tree and timestamps. Two implementations are
// provided:
//
//   - [SQLiteStore]: a single-file database, the default for the CLI and
//     the server.
//   - [MongoStore]: a MongoDB collection, for deployments that already run
//     one.
//
// # Seeding
//
// Loading a save whose research state is empty seeds it with
// [research.Default] for the store's pinned techs and persists the result,
// so a save created before any research always opens with the starting
// techs unlocked.
//
// # Errors
//
// Stores return coded errors from package errors: SAVE_NOT_FOUND for
// unknown IDs, SAVE_LIMIT when creating beyond MaxSaves and INVALID_INPUT
// for malformed IDs or names.
package save
