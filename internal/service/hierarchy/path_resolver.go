package hierarchy

import "foldervault/internal/domain/models"

// PathSeparator joins folder ids in a materialized path.
const PathSeparator = "/"

// ComputePath returns the materialized path of a folder with id selfID placed
// under parent. Paths are built from ids, not names, so renaming a folder
// never moves anything on disk.
func ComputePath(parent *models.Folder, selfID string) string {
	if parent == nil {
		return selfID
	}
	return parent.Path + PathSeparator + selfID
}
