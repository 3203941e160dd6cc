package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"curator/internal/boards"
	"curator/internal/services"
)

// CreateBoard inserts a board. Any rejection is reported as ErrCreateFailed.
func (s *Store) CreateBoard(ctx context.Context, draft boards.Draft) (int64, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return 0, services.Wrap(services.ErrCreateFailed, "library", "create board", "name is required", nil)
	}
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if draft.ParentID != nil {
			ok, err := rowExists(ctx, tx, "boards", *draft.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("create board", "parent board", *draft.ParentID)
			}
		}
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO boards (name, description, parent_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			name, strings.TrimSpace(draft.Description), nullableInt64(draft.ParentID), now, now,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, services.Wrap(services.ErrCreateFailed, "library", "create board", name, err)
	}
	return id, nil
}

// RenameBoard updates a board's name and description.
func (s *Store) RenameBoard(ctx context.Context, id int64, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return services.Wrap(services.ErrValidation, "library", "rename board", "name is required", nil)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE boards SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		name, strings.TrimSpace(description), nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("rename board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("rename board", "board", id)
	}
	return nil
}

// DeleteBoard removes a board. Without cascade its sub-boards move up to the
// deleted board's parent; with cascade the whole subtree is removed.
// Memberships of removed boards are dropped; images are kept.
func (s *Store) DeleteBoard(ctx context.Context, id int64, cascade bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var parent sql.NullInt64
		err := tx.QueryRowContext(ctx, `SELECT parent_id FROM boards WHERE id = ?`, id).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("delete board", "board", id)
		}
		if err != nil {
			return fmt.Errorf("load board: %w", err)
		}
		if !cascade {
			var newParent any
			if parent.Valid {
				newParent = parent.Int64
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE boards SET parent_id = ?, updated_at = ? WHERE parent_id = ?`,
				newParent, nowString(), id,
			); err != nil {
				return fmt.Errorf("promote sub-boards: %w", err)
			}
		}
		// foreign_keys cascades the subtree and memberships.
		if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete board: %w", err)
		}
		return nil
	})
}

// MergeBoards moves every membership of source to target and returns how
// many source images are now on target. With deleteSource the source's
// sub-boards are re-parented to target and the source is removed.
func (s *Store) MergeBoards(ctx context.Context, sourceID, targetID int64, deleteSource bool) (int, error) {
	if sourceID == targetID {
		return 0, services.Wrap(services.ErrInvalidMergeTarget, "library", "merge boards", "a board cannot be merged into itself", nil)
	}
	var moved int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []int64{sourceID, targetID} {
			ok, err := rowExists(ctx, tx, "boards", id)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("merge boards", "board", id)
			}
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM board_images WHERE board_id = ?`, sourceID,
		).Scan(&moved); err != nil {
			return fmt.Errorf("count source images: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO board_images (board_id, image_id, added_at)
             SELECT ?, image_id, ? FROM board_images WHERE board_id = ?`,
			targetID, nowString(), sourceID,
		); err != nil {
			return fmt.Errorf("copy memberships: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM board_images WHERE board_id = ?`, sourceID); err != nil {
			return fmt.Errorf("clear source memberships: %w", err)
		}
		if !deleteSource {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE boards SET parent_id = ?, updated_at = ? WHERE parent_id = ?`,
			targetID, nowString(), sourceID,
		); err != nil {
			return fmt.Errorf("re-parent sub-boards: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, sourceID); err != nil {
			return fmt.Errorf("delete source board: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// AddMembership puts an image on a board. Adding an existing member is a no-op.
func (s *Store) AddMembership(ctx context.Context, boardID, imageID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureMembershipEnds(ctx, tx, "add to board", boardID, imageID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO board_images (board_id, image_id, added_at) VALUES (?, ?, ?)`,
			boardID, imageID, nowString(),
		)
		return err
	})
}

// RemoveMembership takes an image off a board. Removing a non-member is a no-op.
func (s *Store) RemoveMembership(ctx context.Context, boardID, imageID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := ensureMembershipEnds(ctx, tx, "remove from board", boardID, imageID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM board_images WHERE board_id = ? AND image_id = ?`,
			boardID, imageID,
		)
		return err
	})
}

func ensureMembershipEnds(ctx context.Context, tx *sql.Tx, operation string, boardID, imageID int64) error {
	ok, err := rowExists(ctx, tx, "boards", boardID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(operation, "board", boardID)
	}
	ok, err = rowExists(ctx, tx, "images", imageID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(operation, "image", imageID)
	}
	return nil
}

// ListBoards returns every board in creation order with its image count.
func (s *Store) ListBoards(ctx context.Context) ([]boards.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.name, b.description, b.parent_id,
                (SELECT COUNT(1) FROM board_images bi WHERE bi.board_id = b.id)
         FROM boards b ORDER BY b.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var out []boards.Row
	for rows.Next() {
		var (
			row    boards.Row
			desc   sql.NullString
			parent sql.NullInt64
		)
		if err := rows.Scan(&row.ID, &row.Name, &desc, &parent, &row.ImageCount); err != nil {
			return nil, err
		}
		row.Description = desc.String
		if parent.Valid {
			pid := parent.Int64
			row.ParentID = &pid
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// LoadTree builds the board forest from storage.
func (s *Store) LoadTree(ctx context.Context) (*boards.Tree, error) {
	rows, err := s.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	return boards.Build(rows), nil
}

// BoardImages lists the images on a board, newest first.
func (s *Store) BoardImages(ctx context.Context, boardID int64) ([]*Image, error) {
	ok, err := rowExists(ctx, s.db, "boards", boardID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("board images", "board", boardID)
	}
	return s.ListImages(ctx, ListFilter{BoardID: boardID})
}
