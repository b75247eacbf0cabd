// Package resource is the storage abstraction the cleanup works on: storages
// holding folders and files, addressed by combined identifiers of the form
// "<storageId>:<path>", backed by pluggable drivers and a database file index.
package resource

import (
	"path"
	"strconv"
	"strings"
)

// RecyclerFolderName is the reserved holding folder created next to recycled files.
const RecyclerFolderName = "_recycler_"

// DefaultStorageID is used when a combined identifier carries no storage prefix.
const DefaultStorageID = 1

// ParseCombinedIdentifier splits "<storageId>:<path>" into its parts. A value
// without a numeric prefix is a path on the default storage.
func ParseCombinedIdentifier(combined string) (int, string) {
	if prefix, rest, ok := strings.Cut(combined, ":"); ok {
		if id, err := strconv.Atoi(strings.TrimSpace(prefix)); err == nil {
			return id, rest
		}
	}
	return DefaultStorageID, combined
}

// CombinedIdentifier joins a storage id and an identifier.
func CombinedIdentifier(storageID int, identifier string) string {
	return strconv.Itoa(storageID) + ":" + identifier
}

// NormalizeFolder returns p with exactly one leading and trailing slash.
func NormalizeFolder(p string) string {
	p = strings.TrimSpace(p)
	p = path.Clean("/" + p)
	if p == "/" {
		return p
	}
	return p + "/"
}

// NormalizeFile returns a clean, absolute file identifier.
func NormalizeFile(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}

// parentFolder returns the folder identifier containing identifier.
func parentFolder(identifier string) string {
	dir := path.Dir(strings.TrimSuffix(identifier, "/"))
	return NormalizeFolder(dir)
}

// baseName returns the last path segment of a file or folder identifier.
func baseName(identifier string) string {
	trimmed := strings.TrimSuffix(identifier, "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}

// segments splits an identifier into its folder names, file name last.
func segments(identifier string) []string {
	return strings.FieldsFunc(identifier, func(r rune) bool { return r == '/' })
}

// isHidden reports whether a path segment is hidden by the default storage filter.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
