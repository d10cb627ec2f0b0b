package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "labfit/internal/errors"
)

// Artifact is one rendered output file
type Artifact struct {
	Path string
	Data []byte
}

// Commit writes artifacts all or nothing: every file is first written to a
// temporary sibling, and only when all of them are on disk are they renamed
// into place. Files being replaced are kept aside until every rename
// succeeded, so a failure at any point restores the previous outputs.
func Commit(ctx context.Context, artifacts []Artifact) error {
	temps := make([]string, 0, len(artifacts))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		tmp, err := writeTemp(a)
		if err != nil {
			cleanup()
			return apperrors.NewOutputWriteError(a.Path, err)
		}
		temps = append(temps, tmp)
	}

	var placed []placement
	rollback := func() {
		for i := len(placed) - 1; i >= 0; i-- {
			placed[i].undo()
		}
	}

	for i, a := range artifacts {
		p, err := place(temps[i], a.Path)
		if err != nil {
			temps = temps[i:]
			cleanup()
			rollback()
			return apperrors.NewOutputWriteError(a.Path, err)
		}
		placed = append(placed, p)
	}

	for i, p := range placed {
		p.commit()
		slog.InfoContext(ctx, "Artifact written",
			slog.String("path", p.path),
			slog.Int("bytes", len(artifacts[i].Data)))
	}
	return nil
}

// placement is a file renamed into place, with the file it replaced
type placement struct {
	path   string
	backup string
}

func (p placement) undo() {
	if p.backup != "" {
		os.Rename(p.backup, p.path)
		return
	}
	os.Remove(p.path)
}

func (p placement) commit() {
	if p.backup != "" {
		os.Remove(p.backup)
	}
}

// place moves tmp to path, keeping an existing file at path aside
func place(tmp, path string) (placement, error) {
	p := placement{path: path}

	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return p, err
	case info.IsDir():
		return p, fmt.Errorf("%s is a directory", path)
	default:
		if p.backup, err = backupName(path); err != nil {
			return p, err
		}
		if err := os.Rename(path, p.backup); err != nil {
			os.Remove(p.backup)
			return placement{path: path}, err
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		if p.backup != "" {
			os.Rename(p.backup, path)
		}
		return placement{path: path}, err
	}
	return p, nil
}

func backupName(path string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".bak-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func writeTemp(a Artifact) (string, error) {
	dir := filepath.Dir(a.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(a.Path)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()

	if _, err := f.Write(a.Data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
