package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Script is one migration unit. Name doubles as the ledger primary key and
// the apply-order key, so filenames must carry a sortable prefix (zero-padded
// sequence numbers by convention). The runner enforces ordering, not naming.
type Script struct {
	Name string
	SQL  string
}

// Source points the runner at the two independent migration directories.
type Source struct {
	FS        fs.FS
	PublicDir string
	TenantDir string
}

// ListScripts enumerates the .sql files of one directory, eagerly reading
// their contents and sorting by name. A directory that cannot be read is
// fatal; an empty directory is a valid, empty catalog.
func ListScripts(fsys fs.FS, dir string) ([]Script, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migration dir %s: %w", dir, err)
	}

	scripts := make([]Script, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		scripts = append(scripts, Script{Name: entry.Name(), SQL: string(body)})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}

// pendingScripts filters the ordered catalog down to the scripts whose names
// are not yet recorded in the ledger, preserving catalog order.
func pendingScripts(scripts []Script, applied map[string]struct{}) []Script {
	var out []Script
	for _, s := range scripts {
		if _, ok := applied[s.Name]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
