// Package contentstore is the directory-backed content store ("vault")
// that terminal links resolve against and new entries are written to.
//
// Lookups go through an afero base-path filesystem, so nothing outside the
// root is reachable. Listing uses fastwalk on the real disk and doublestar
// for glob patterns; MIME types come from content sniffing.
package contentstore
