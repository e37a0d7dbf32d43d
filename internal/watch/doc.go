// Package watch polls scan roots for changes and triggers rescans.
//
// Detection is deliberately cheap so it stays harmless on network
// filesystems: per root it checks the directory's own mtime, counts
// top-level entries, and compares mtimes of the top-level
// subdirectories. Deep changes inside an unchanged subdirectory tree
// can slip past a poll; the next full scan still reconciles them.
package watch
