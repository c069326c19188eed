// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/bibrecord-engine/internal/store"
)

// Archive bundles every fetched record file into a zip at path and
// returns the number of files written. Entries are stored flat under a
// records/ prefix.
func Archive(st *store.Store, path string) (int, error) {
	entries, err := os.ReadDir(st.RecordsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("no records to archive: %w", err)
		}
		return 0, fmt.Errorf("listing records: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating archive directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		if err := addFile(zw, filepath.Join(st.RecordsDir(), e.Name()), "records/"+e.Name()); err != nil {
			zw.Close()
			return count, err
		}
		count++
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return count, fmt.Errorf("closing archive: %w", err)
	}
	return count, nil
}

func addFile(zw *zip.Writer, srcPath, name string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", srcPath, err)
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("adding %s to archive: %w", name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("writing %s to archive: %w", name, err)
	}
	return nil
}
