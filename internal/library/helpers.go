package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"curator/internal/services"
)

const imageColumns = "id, filename, filepath, description, media_type, file_size, is_favorite, analyzed_at, created_at, updated_at"

func scanImage(scanner interface{ Scan(dest ...any) error }) (*Image, error) {
	var (
		id          int64
		filename    string
		path        string
		description sql.NullString
		mediaType   sql.NullString
		size        sql.NullInt64
		favorite    sql.NullInt64
		analyzedRaw sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&filename,
		&path,
		&description,
		&mediaType,
		&size,
		&favorite,
		&analyzedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	img := &Image{
		ID:          id,
		Filename:    filename,
		Filepath:    path,
		Description: description.String,
		MediaType:   MediaType(mediaType.String),
		Size:        size.Int64,
		Favorite:    favorite.Int64 != 0,
	}
	if img.MediaType == "" {
		img.MediaType = MediaImage
	}
	if analyzedRaw.Valid {
		if analyzed, err := parseTimeString(analyzedRaw.String); err == nil {
			img.AnalyzedAt = &analyzed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		img.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		img.UpdatedAt = updated
	}
	return img, nil
}

// queryImages runs query and attaches tags and board ids to every row.
func (s *Store) queryImages(ctx context.Context, query string, args ...any) ([]*Image, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var images []*Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if err := s.attachRelations(ctx, images); err != nil {
		return nil, err
	}
	return images, nil
}

func (s *Store) attachRelations(ctx context.Context, images []*Image) error {
	if len(images) == 0 {
		return nil
	}
	byID := make(map[int64]*Image, len(images))
	args := make([]any, 0, len(images))
	for _, img := range images {
		byID[img.ID] = img
		args = append(args, img.ID)
	}
	placeholders := makePlaceholders(len(args))

	tagRows, err := s.db.QueryContext(ctx,
		`SELECT it.image_id, t.name FROM image_tags it
         JOIN tags t ON t.id = it.tag_id
         WHERE it.image_id IN (`+placeholders+`)
         ORDER BY it.image_id, it.position, t.name`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	for tagRows.Next() {
		var (
			imageID int64
			name    string
		)
		if err := tagRows.Scan(&imageID, &name); err != nil {
			_ = tagRows.Close()
			return err
		}
		byID[imageID].Tags = append(byID[imageID].Tags, name)
	}
	if err := tagRows.Err(); err != nil {
		_ = tagRows.Close()
		return err
	}
	_ = tagRows.Close()

	boardRows, err := s.db.QueryContext(ctx,
		`SELECT image_id, board_id FROM board_images
         WHERE image_id IN (`+placeholders+`)
         ORDER BY image_id, board_id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("load memberships: %w", err)
	}
	defer boardRows.Close()
	for boardRows.Next() {
		var imageID, boardID int64
		if err := boardRows.Scan(&imageID, &boardID); err != nil {
			return err
		}
		byID[imageID].BoardIDs = append(byID[imageID].BoardIDs, boardID)
	}
	return boardRows.Err()
}

func rowExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, table string, id int64) (bool, error) {
	var found int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func notFound(operation, kind string, id int64) error {
	return services.Wrap(services.ErrNotFound, "library", operation, fmt.Sprintf("%s %d does not exist", kind, id), nil)
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
