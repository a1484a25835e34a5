package board

import "fmt"

// Migrate upgrades a decoded manifest to CurrentVersion in place and reports
// whether anything changed. Manifests written by a newer build are rejected
// rather than silently downgraded.
func Migrate(b *Board) (bool, error) {
	if b.Version > CurrentVersion {
		return false, Corrupt("migrate manifest", "", fmt.Errorf("schema version %d is newer than supported version %d", b.Version, CurrentVersion))
	}
	if b.Version < 0 {
		return false, Corrupt("migrate manifest", "", fmt.Errorf("invalid schema version %d", b.Version))
	}

	changed := false
	if b.Version == 0 {
		// Version 0 manifests predate the version field. They carry the same
		// shape, so the upgrade only stamps the version.
		b.Version = 1
		changed = true
	}
	if b.Columns == nil {
		b.Columns = []Column{}
	}
	if b.Items == nil {
		b.Items = []Task{}
	}
	return changed, nil
}
