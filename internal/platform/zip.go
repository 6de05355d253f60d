package platform

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// zipDirectory archives the contents of sourceDir into
// <projectRoot>/build/<outputName>.zip and returns the archive path.
func zipDirectory(projectRoot, sourceDir, outputName string) (string, error) {
	zipPath := filepath.Join(projectRoot, "build", outputName+".zip")
	if err := writeZip(zipPath, sourceDir, ""); err != nil {
		return "", err
	}
	return zipPath, nil
}

// zipBundle archives an app bundle (a .app directory) keeping the bundle
// directory itself as the archive root.
func zipBundle(projectRoot, bundlePath, outputName string) (string, error) {
	zipPath := filepath.Join(projectRoot, "build", outputName+".zip")
	if err := writeZip(zipPath, filepath.Dir(bundlePath), filepath.Base(bundlePath)); err != nil {
		return "", err
	}
	return zipPath, nil
}

// writeZip creates a zip archive at zipPath from root. When prefix is
// non-empty only that subtree is archived and entries keep the prefix.
func writeZip(zipPath, root, prefix string) error {
	if err := os.MkdirAll(filepath.Dir(zipPath), 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	walkRoot := root
	if prefix != "" {
		walkRoot = filepath.Join(root, prefix)
	}

	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archiving %s: %w", walkRoot, err)
	}

	return zw.Close()
}
