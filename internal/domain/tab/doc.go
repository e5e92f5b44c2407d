// Package tab implements a terminal session: one shell backend attached to
// one rendering surface, with the keyboard, paste, selection and link
// policies between them.
//
// A session goes unstarted -> running on Mount and running -> exited when
// the shell ends. Restart works from either running or exited and always
// tears down the previous listeners before the old process is killed, so
// input and output are never delivered twice.
package tab
