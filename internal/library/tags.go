package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"curator/internal/textutil"
)

func insertTags(ctx context.Context, tx *sql.Tx, imageID int64, tags []string, startPos int) error {
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tags (name) VALUES (?)`, tag); err != nil {
			return fmt.Errorf("insert tag %q: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO image_tags (image_id, tag_id, position)
             SELECT ?, id, ? FROM tags WHERE name = ?`,
			imageID, startPos+i, tag,
		); err != nil {
			return fmt.Errorf("link tag %q: %w", tag, err)
		}
	}
	return nil
}

// AddTags appends tags to an image, skipping ones it already has. It returns
// the image's full tag list.
func (s *Store) AddTags(ctx context.Context, imageID int64, tags []string) ([]string, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := rowExists(ctx, tx, "images", imageID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("add tags", "image", imageID)
		}
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM image_tags WHERE image_id = ?`, imageID,
		).Scan(&next); err != nil {
			return err
		}
		return insertTags(ctx, tx, imageID, textutil.NormalizeTags(tags), next)
	})
	if err != nil {
		return nil, err
	}
	img, err := s.MustGetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return img.Tags, nil
}

// RemoveTag detaches a tag from an image. Removing an absent tag is a no-op.
func (s *Store) RemoveTag(ctx context.Context, imageID int64, tag string) error {
	ok, err := rowExists(ctx, s.db, "images", imageID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("remove tag", "image", imageID)
	}
	_, err = s.execWithRetry(ctx,
		`DELETE FROM image_tags WHERE image_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)`,
		imageID, textutil.NormalizeTag(tag),
	)
	if err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	return nil
}

// AllTags returns every tag in use with its image count, most used first.
func (s *Store) AllTags(ctx context.Context) ([]TagCount, error) {
	return s.tagCounts(ctx, `SELECT t.name, COUNT(it.image_id) AS n FROM tags t
        JOIN image_tags it ON it.tag_id = t.id
        GROUP BY t.id ORDER BY n DESC, t.name`)
}

// TagSuggestions returns tags in use starting with prefix, most used first.
func (s *Store) TagSuggestions(ctx context.Context, prefix string, limit int) ([]TagCount, error) {
	prefix = textutil.NormalizeTag(prefix)
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.tagCounts(ctx, `SELECT t.name, COUNT(it.image_id) AS n FROM tags t
        JOIN image_tags it ON it.tag_id = t.id
        WHERE t.name LIKE ? ESCAPE '\'
        GROUP BY t.id ORDER BY n DESC, t.name LIMIT ?`,
		escapeLike(prefix)+"%", limit)
}

// RelatedTags returns the tags sharing images with tag, ranked by how many
// images carry both. tag itself is never listed.
func (s *Store) RelatedTags(ctx context.Context, tag string, limit int) ([]TagCount, error) {
	tag = textutil.NormalizeTag(tag)
	if tag == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.tagCounts(ctx, `SELECT t.name, COUNT(DISTINCT other.image_id) AS n
        FROM tags base
        JOIN image_tags seed ON seed.tag_id = base.id
        JOIN image_tags other ON other.image_id = seed.image_id AND other.tag_id != base.id
        JOIN tags t ON t.id = other.tag_id
        WHERE base.name = ?
        GROUP BY t.id ORDER BY n DESC, t.name LIMIT ?`,
		tag, limit)
}

// PruneTags deletes tags no image carries and returns how many went.
func (s *Store) PruneTags(ctx context.Context) (int, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tags WHERE id NOT IN (SELECT tag_id FROM image_tags)`)
	if err != nil {
		return 0, fmt.Errorf("prune tags: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) tagCounts(ctx context.Context, query string, args ...any) ([]TagCount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tag counts: %w", err)
	}
	defer rows.Close()
	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		tc.Name = strings.TrimSpace(tc.Name)
		out = append(out, tc)
	}
	return out, rows.Err()
}
