package database

import (
	"database/sql"
	"time"

	"github.com/chronoplan-io/chronoplan/internal/models"
)

const timeBlockColumns = `id, user_id, title, notes, starts_at, ends_at, calendar_event_id, created_at, updated_at`

// CreateTimeBlock inserts a new time block for a user.
func (s *Store) CreateTimeBlock(block *models.TimeBlock) error {
	now := time.Now().UTC()
	block.ID = GenerateID()
	block.CreatedAt = now
	block.UpdatedAt = now

	var query string
	if s.dbType == "postgres" {
		query = `INSERT INTO time_blocks (id, user_id, title, notes, starts_at, ends_at, calendar_event_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	} else {
		query = `INSERT INTO time_blocks (id, user_id, title, notes, starts_at, ends_at, calendar_event_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}

	_, err := s.db.Exec(query,
		block.ID, block.UserID, block.Title, block.Notes,
		block.StartsAt.UTC(), block.EndsAt.UTC(), block.CalendarEventID,
		block.CreatedAt, block.UpdatedAt,
	)
	return err
}

// GetTimeBlock retrieves a time block scoped to its owner.
func (s *Store) GetTimeBlock(userID, blockID string) (*models.TimeBlock, error) {
	var query string
	if s.dbType == "postgres" {
		query = "SELECT " + timeBlockColumns + " FROM time_blocks WHERE id = $1 AND user_id = $2"
	} else {
		query = "SELECT " + timeBlockColumns + " FROM time_blocks WHERE id = ? AND user_id = ?"
	}

	block := &models.TimeBlock{}
	err := s.db.QueryRow(query, blockID, userID).Scan(
		&block.ID, &block.UserID, &block.Title, &block.Notes,
		&block.StartsAt, &block.EndsAt, &block.CalendarEventID,
		&block.CreatedAt, &block.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return block, nil
}

// ListTimeBlocks returns a user's time blocks overlapping [from, to),
// ordered by start time.
func (s *Store) ListTimeBlocks(userID string, from, to time.Time) ([]*models.TimeBlock, error) {
	var query string
	if s.dbType == "postgres" {
		query = "SELECT " + timeBlockColumns + ` FROM time_blocks
			WHERE user_id = $1 AND ends_at > $2 AND starts_at < $3 ORDER BY starts_at`
	} else {
		query = "SELECT " + timeBlockColumns + ` FROM time_blocks
			WHERE user_id = ? AND ends_at > ? AND starts_at < ? ORDER BY starts_at`
	}

	rows, err := s.db.Query(query, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []*models.TimeBlock
	for rows.Next() {
		block := &models.TimeBlock{}
		err := rows.Scan(
			&block.ID, &block.UserID, &block.Title, &block.Notes,
			&block.StartsAt, &block.EndsAt, &block.CalendarEventID,
			&block.CreatedAt, &block.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

// UpdateTimeBlock updates a time block scoped to its owner.
func (s *Store) UpdateTimeBlock(block *models.TimeBlock) error {
	var query string
	if s.dbType == "postgres" {
		query = `UPDATE time_blocks SET title = $1, notes = $2, starts_at = $3, ends_at = $4,
			calendar_event_id = $5, updated_at = $6 WHERE id = $7 AND user_id = $8`
	} else {
		query = `UPDATE time_blocks SET title = ?, notes = ?, starts_at = ?, ends_at = ?,
			calendar_event_id = ?, updated_at = ? WHERE id = ? AND user_id = ?`
	}

	block.UpdatedAt = time.Now().UTC()
	result, err := s.db.Exec(query,
		block.Title, block.Notes, block.StartsAt.UTC(), block.EndsAt.UTC(),
		block.CalendarEventID, block.UpdatedAt, block.ID, block.UserID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteTimeBlock removes a time block scoped to its owner.
func (s *Store) DeleteTimeBlock(userID, blockID string) error {
	var query string
	if s.dbType == "postgres" {
		query = "DELETE FROM time_blocks WHERE id = $1 AND user_id = $2"
	} else {
		query = "DELETE FROM time_blocks WHERE id = ? AND user_id = ?"
	}

	result, err := s.db.Exec(query, blockID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
