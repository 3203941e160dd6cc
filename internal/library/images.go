package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"curator/internal/services"
	"curator/internal/similarity"
	"curator/internal/textutil"
)

// AddImage registers a file. Registering a path twice returns the existing entry.
func (s *Store) AddImage(ctx context.Context, in NewImage) (*Image, error) {
	path := strings.TrimSpace(in.Filepath)
	if path == "" {
		return nil, services.Wrap(services.ErrValidation, "library", "add image", "path is required", nil)
	}
	mediaType := in.MediaType
	if mediaType == "" {
		detected, ok := MediaTypeFor(path)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "library", "add image", "unsupported file type: "+filepath.Ext(path), nil)
		}
		mediaType = detected
	}
	now := nowString()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO images (filename, filepath, media_type, file_size, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(filepath) DO NOTHING`,
		filepath.Base(path), path, string(mediaType), in.Size, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	return s.ImageByPath(ctx, path)
}

// GetImage fetches an image by id. It returns nil, nil when none exists.
func (s *Store) GetImage(ctx context.Context, id int64) (*Image, error) {
	images, err := s.queryImages(ctx, `SELECT `+imageColumns+` FROM images WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	if len(images) == 0 {
		return nil, nil
	}
	return images[0], nil
}

// MustGetImage is GetImage with a missing id reported as ErrNotFound.
func (s *Store) MustGetImage(ctx context.Context, id int64) (*Image, error) {
	img, err := s.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, notFound("get image", "image", id)
	}
	return img, nil
}

// ImageByPath fetches an image by its file path. It returns nil, nil when none exists.
func (s *Store) ImageByPath(ctx context.Context, path string) (*Image, error) {
	images, err := s.queryImages(ctx, `SELECT `+imageColumns+` FROM images WHERE filepath = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("get image by path: %w", err)
	}
	if len(images) == 0 {
		return nil, nil
	}
	return images[0], nil
}

// ListImages returns images newest first, narrowed by filter.
func (s *Store) ListImages(ctx context.Context, filter ListFilter) ([]*Image, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.BoardID > 0 {
		clauses = append(clauses, `id IN (SELECT image_id FROM board_images WHERE board_id = ?)`)
		args = append(args, filter.BoardID)
	}
	if filter.FavoritesOnly {
		clauses = append(clauses, `is_favorite = 1`)
	}
	if filter.Unanalyzed {
		clauses = append(clauses, `analyzed_at IS NULL`)
	}
	if tag := textutil.NormalizeTag(filter.Tag); tag != "" {
		clauses = append(clauses, `id IN (SELECT it.image_id FROM image_tags it JOIN tags t ON t.id = it.tag_id WHERE t.name = ?)`)
		args = append(args, tag)
	}

	query := `SELECT ` + imageColumns + ` FROM images`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	images, err := s.queryImages(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

// UnanalyzedIDs returns ids of still images without an analysis, oldest
// first. limit <= 0 means all of them.
func (s *Store) UnanalyzedIDs(ctx context.Context, limit int) ([]int64, error) {
	query := `SELECT id FROM images WHERE analyzed_at IS NULL AND media_type = ? ORDER BY id`
	args := []any{string(MediaImage)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unanalyzed ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// KnownPaths returns the set of registered file paths.
func (s *Store) KnownPaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filepath FROM images`)
	if err != nil {
		return nil, fmt.Errorf("known paths: %w", err)
	}
	defer rows.Close()
	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = struct{}{}
	}
	return paths, rows.Err()
}

// UpdateAnalysis stores a description and replaces the image's tags, marking
// it analyzed.
func (s *Store) UpdateAnalysis(ctx context.Context, id int64, description string, tags []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`UPDATE images SET description = ?, analyzed_at = ?, updated_at = ? WHERE id = ?`,
			strings.TrimSpace(description), now, now, id,
		)
		if err != nil {
			return fmt.Errorf("update analysis: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("update analysis", "image", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE image_id = ?`, id); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		return insertTags(ctx, tx, id, textutil.NormalizeTags(tags), 0)
	})
}

// UpdateDescription replaces the description without touching tags.
func (s *Store) UpdateDescription(ctx context.Context, id int64, description string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE images SET description = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(description), nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("update description: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("update description", "image", id)
	}
	return nil
}

// RenameImage records a new location for an image file. A path already used
// by another image is rejected.
func (s *Store) RenameImage(ctx context.Context, id int64, newPath string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM images WHERE filepath = ?`, newPath).Scan(&owner)
		switch {
		case err == nil && owner != id:
			return services.Wrap(services.ErrValidation, "library", "rename image", "path already in use: "+newPath, nil)
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("check path: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE images SET filename = ?, filepath = ?, updated_at = ? WHERE id = ?`,
			filepath.Base(newPath), newPath, nowString(), id,
		)
		if err != nil {
			return fmt.Errorf("rename image: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("rename image", "image", id)
		}
		return nil
	})
}

// SetFavorite sets the favorite flag.
func (s *Store) SetFavorite(ctx context.Context, id int64, favorite bool) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE images SET is_favorite = ?, updated_at = ? WHERE id = ?`,
		boolToInt(favorite), nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("set favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("set favorite", "image", id)
	}
	return nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Store) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	var favorite bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `SELECT is_favorite FROM images WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("toggle favorite", "image", id)
		}
		if err != nil {
			return err
		}
		favorite = current == 0
		_, err = tx.ExecContext(ctx,
			`UPDATE images SET is_favorite = ?, updated_at = ? WHERE id = ?`,
			boolToInt(favorite), nowString(), id,
		)
		return err
	})
	return favorite, err
}

// DeleteImage forgets an image. The file on disk is left alone.
func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, `DELETE FROM images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("delete image", "image", id)
	}
	return nil
}

// SearchImages matches query against filenames, descriptions, and tags,
// case-insensitively.
func (s *Store) SearchImages(ctx context.Context, query string, limit int) ([]*Image, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListImages(ctx, ListFilter{Limit: limit})
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	sqlText := `SELECT ` + imageColumns + ` FROM images
        WHERE lower(filename) LIKE ? ESCAPE '\'
           OR lower(description) LIKE ? ESCAPE '\'
           OR id IN (SELECT it.image_id FROM image_tags it JOIN tags t ON t.id = it.tag_id
                     WHERE t.name LIKE ? ESCAPE '\')
        ORDER BY id DESC`
	args := []any{pattern, pattern, pattern}
	if limit > 0 {
		sqlText += ` LIMIT ?`
		args = append(args, limit)
	}
	images, err := s.queryImages(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}
	return images, nil
}

// SimilarCandidates loads the target image and every image sharing a tag
// with it.
func (s *Store) SimilarCandidates(ctx context.Context, id int64) (similarity.Candidate, []similarity.Candidate, error) {
	target, err := s.MustGetImage(ctx, id)
	if err != nil {
		return similarity.Candidate{}, nil, err
	}
	if len(target.Tags) == 0 {
		return toCandidate(target), nil, nil
	}
	args := make([]any, 0, len(target.Tags)+1)
	for _, tag := range target.Tags {
		args = append(args, tag)
	}
	args = append(args, id)
	pool, err := s.queryImages(ctx,
		`SELECT `+imageColumns+` FROM images
         WHERE id IN (SELECT it.image_id FROM image_tags it JOIN tags t ON t.id = it.tag_id
                      WHERE t.name IN (`+makePlaceholders(len(target.Tags))+`))
           AND id <> ?
         ORDER BY id`,
		args...,
	)
	if err != nil {
		return similarity.Candidate{}, nil, fmt.Errorf("similar candidates: %w", err)
	}
	out := make([]similarity.Candidate, 0, len(pool))
	for _, img := range pool {
		out = append(out, toCandidate(img))
	}
	return toCandidate(target), out, nil
}

func toCandidate(img *Image) similarity.Candidate {
	return similarity.Candidate{
		ImageID:     img.ID,
		Filename:    img.Filename,
		Description: img.Description,
		Tags:        img.Tags,
	}
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
