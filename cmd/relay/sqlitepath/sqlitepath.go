// Package sqlitepath locates an existing relay SQLite session store.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/relay/pkg/dotdir"
)

// DefaultFile is the conventional session store file name.
const DefaultFile = "relay.db"

// ResolveSQLitePath returns override when set, otherwise the first existing
// candidate store.
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("could not find relay SQLite database; pass --sqlite")
}

func sqliteCandidates() []string {
	var candidates []string

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "relay", DefaultFile))
	}
	if dir, ok := dotdir.NewManager().Find(""); ok {
		candidates = append(candidates, filepath.Join(dir, DefaultFile))
	}

	return append(candidates, DefaultFile)
}
