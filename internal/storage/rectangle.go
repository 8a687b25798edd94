package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"pdfviewer/internal/domain"
)

// RectangleStore implements domain.RectangleRepository over database/sql.
type RectangleStore struct {
	db *DB
}

// NewRectangleStore creates a RectangleStore.
func NewRectangleStore(db *DB) *RectangleStore {
	return &RectangleStore{db: db}
}

const rectangleColumns = `seq, id, page, x, y, width, height, color, created_at`

// Create inserts r, assigning ID, Seq and CreatedAt.
func (s *RectangleStore) Create(r *domain.StoredRectangle) error {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now().UTC()

	const insert = `INSERT INTO rectangles (id, page, x, y, width, height, color, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{r.ID, r.Page, r.X, r.Y, r.Width, r.Height, r.Color, r.CreatedAt}

	if s.db.driver == DriverMySQL {
		res, err := s.db.conn.Exec(insert, args...)
		if err != nil {
			return fmt.Errorf("insert rectangle: %w", err)
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert rectangle: %w", err)
		}
		r.Seq = seq
		return nil
	}

	if err := s.db.conn.QueryRow(s.db.rebind(insert+` RETURNING seq`), args...).Scan(&r.Seq); err != nil {
		return fmt.Errorf("insert rectangle: %w", err)
	}
	return nil
}

// List returns every rectangle in insertion order.
func (s *RectangleStore) List() ([]domain.StoredRectangle, error) {
	return s.query(`SELECT `+rectangleColumns+` FROM rectangles ORDER BY seq ASC`)
}

// ListByPage returns the rectangles on page in insertion order.
func (s *RectangleStore) ListByPage(page int) ([]domain.StoredRectangle, error) {
	return s.query(`SELECT `+rectangleColumns+` FROM rectangles WHERE page = ? ORDER BY seq ASC`, page)
}

// Close closes the underlying DB.
func (s *RectangleStore) Close() error {
	return s.db.Close()
}

func (s *RectangleStore) query(q string, args ...any) ([]domain.StoredRectangle, error) {
	rows, err := s.db.conn.Query(s.db.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list rectangles: %w", err)
	}
	defer rows.Close()

	result := []domain.StoredRectangle{}
	for rows.Next() {
		var r domain.StoredRectangle
		if err := rows.Scan(&r.Seq, &r.ID, &r.Page, &r.X, &r.Y, &r.Width, &r.Height, &r.Color, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rectangle: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

var _ domain.RectangleRepository = (*RectangleStore)(nil)
