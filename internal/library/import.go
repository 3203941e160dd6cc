package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"curator/internal/fileutil"
	"curator/internal/services"
	"curator/internal/textutil"
)

// ScanResult counts what a directory scan did.
type ScanResult struct {
	Added       []int64 `json:"added"`
	Skipped     int     `json:"skipped"`
	Unsupported int     `json:"unsupported"`
}

// Scan registers every supported media file under dir that is not already in
// the library. Hidden files and directories are ignored.
func (s *Store) Scan(ctx context.Context, dir string, recursive bool) (ScanResult, error) {
	var result ScanResult
	root, err := filepath.Abs(dir)
	if err != nil {
		return result, fmt.Errorf("resolve scan dir: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return result, fmt.Errorf("scan dir: %w", err)
	}
	if !info.IsDir() {
		return result, services.Wrap(services.ErrValidation, "library", "scan", root+" is not a directory", nil)
	}
	known, err := s.KnownPaths(ctx)
	if err != nil {
		return result, err
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || !recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		mediaType, ok := MediaTypeFor(path)
		if !ok {
			result.Unsupported++
			return nil
		}
		if _, seen := known[path]; seen {
			result.Skipped++
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		img, err := s.AddImage(ctx, NewImage{Filepath: path, MediaType: mediaType, Size: fi.Size()})
		if err != nil {
			return err
		}
		known[path] = struct{}{}
		result.Added = append(result.Added, img.ID)
		return nil
	})
	if walkErr != nil {
		return result, fmt.Errorf("scan %s: %w", root, walkErr)
	}
	return result, nil
}

// Import copies src into libraryDir under a sanitised, collision-free name
// and registers the copy.
func (s *Store) Import(ctx context.Context, src, libraryDir string) (*Image, error) {
	mediaType, ok := MediaTypeFor(src)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "library", "import", "unsupported file type: "+filepath.Ext(src), nil)
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "library", "import", src+" is a directory", nil)
	}
	if err := os.MkdirAll(libraryDir, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(src))
	stem := textutil.SecureFileName(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))
	if stem == "" {
		stem = "image"
	}
	dst, err := fileutil.UniquePath(libraryDir, stem, ext, "")
	if err != nil {
		return nil, fmt.Errorf("pick destination: %w", err)
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return nil, fmt.Errorf("copy into library: %w", err)
	}
	img, err := s.AddImage(ctx, NewImage{Filepath: dst, MediaType: mediaType, Size: info.Size()})
	if err != nil {
		if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
		return nil, err
	}
	return img, nil
}
