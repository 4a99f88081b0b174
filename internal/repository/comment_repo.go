package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// CommentDirectory resolves authors of comments owned by the wider platform. Comments live in
// a table this service reads but never writes.
type CommentDirectory interface {
	AuthorOf(ctx context.Context, commentID uint) (uint, bool, error)
}

type commentDirectory struct {
	db    *gorm.DB
	table string
}

// NewCommentDirectory constructs a directory over the shared comments table.
func NewCommentDirectory(db *gorm.DB) CommentDirectory {
	return &commentDirectory{db: db, table: "comments"}
}

func (d *commentDirectory) AuthorOf(ctx context.Context, commentID uint) (uint, bool, error) {
	var row struct {
		AuthorID uint
	}
	err := d.db.WithContext(ctx).
		Table(d.table).
		Select("author_id").
		Where("id = ?", commentID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.AuthorID, true, nil
}
