package engine

import "strings"

// PathSeparator separates the segments of a hierarchical task key.
const PathSeparator = "."

// JoinPath appends name to parent. An empty parent yields name.
func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + PathSeparator + name
}

// ParentPath returns everything before the last separator, or "" for a
// top-level key.
func ParentPath(key string) string {
	i := strings.LastIndex(key, PathSeparator)
	if i < 0 {
		return ""
	}
	return key[:i]
}

// BasePath returns the last segment of key.
func BasePath(key string) string {
	return key[strings.LastIndex(key, PathSeparator)+1:]
}

// IsDescendant reports whether key lies strictly below ancestor.
func IsDescendant(key, ancestor string) bool {
	return strings.HasPrefix(key, ancestor+PathSeparator)
}

// RelativePath resolves path against the parent of caller, so siblings can
// address each other without spelling out the hierarchy above them.
//
//	RelativePath("viewport.draw", "camera") == "viewport.camera"
//	RelativePath("gen", "other")            == "other"
func RelativePath(caller, path string) string {
	return JoinPath(ParentPath(caller), path)
}

// validKey reports whether key is usable as a task key: non-empty, no empty
// segments.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, seg := range strings.Split(key, PathSeparator) {
		if seg == "" {
			return false
		}
	}
	return true
}
