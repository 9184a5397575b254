// Package fileutil provides the file-system primitives shared by drover's
// batch operations: directory scanning with flexible filtering, extension
// handling, and single-file copying.
//
// # Scanning
//
// ScanDirectory walks a directory with configurable recursion, extension and
// regex filters, and directory exclusion. Non-fatal errors (an unreadable
// subdirectory) are collected and the scan continues; only an unusable root
// or an invalid pattern fails the call. Output paths are absolute and sorted
// for deterministic results.
//
//	result, err := fileutil.ScanDirectory("plans", fileutil.ScanOptions{
//	    Pattern:    `^\d+-`,
//	    Extensions: []string{".md", ".markdown"},
//	})
//
// Extension matching is case-insensitive and tolerates a missing leading dot,
// so ".MD", "md", and ".md" select the same files.
//
// Hidden directories (names starting with ".") are skipped unless
// IncludeHidden is set. The batch copy operation does its own WalkDir instead
// of using the scanner: it must visit every subdirectory including hidden
// ones and must abort on the first error rather than collect it.
//
// # Extensions
//
// Extension and SplitExt implement drover's single extension rule: the
// extension is the text after the LAST dot of the file name. ".bashrc" has
// extension "bashrc", "archive.tar.gz" has extension "gz", and "README" has
// none. SplitExt keeps the dot with the extension so collision-renamed names
// can be reassembled as base + sequence + ext.
//
// # Copying
//
// CopyFile copies one file's contents with optional exclusive creation
// (O_EXCL, never clobbering an existing destination) and best-effort
// preservation of mode and modification time.
package fileutil
