// Package workflow provides the task engine that sequences download,
// extraction, file-replacement and cleanup operations.
//
// # Engine
//
// The Engine executes named workflows with a bounded number running
// concurrently (default 4). Submission is non-blocking. Tasks within
// one workflow run strictly in order; if a task fails the remaining
// tasks are abandoned, completed tasks are not rolled back, and other
// workflows are unaffected.
//
// # Events
//
// Each task reports start, incremental progress, completion and error
// events to registered listeners. Listeners run on the workflow's own
// goroutine, so the presentation layer can subscribe without the
// engine depending on it.
//
// # Tasks
//
// DownloadTask stages content at a temporary path and atomically moves
// it into place on success. MoveTask, DeleteTask and ExtractTask cover
// the file shuffling of installs and updates; FuncTask lets the
// orchestrator append a registry update that only runs after every
// earlier step succeeded.
package workflow
