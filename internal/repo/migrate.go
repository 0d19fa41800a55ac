package repo

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// applyMigrations executes the SQL files under the given dialect directory in
// lexicographical order, passing each file's contents to exec.
func applyMigrations(ctx context.Context, filesystem fs.FS, dialect string, exec func(sql string) error) error {
	entries, err := fs.ReadDir(filesystem, dialect)
	if err != nil {
		return fmt.Errorf("read %s migrations: %w", dialect, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("migrations interrupted at %s: %w", entry.Name(), err)
		}

		sqlBytes, err := fs.ReadFile(filesystem, path.Join(dialect, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if len(sqlBytes) == 0 {
			continue
		}

		if err := exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}
