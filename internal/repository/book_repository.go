package repository

import (
	"bookstore/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type BookListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

// カタログの読み取りだけを約束。価格の変更はここではやらない。
type BookRepository interface {
	ListPublic(ctx context.Context, q BookListQuery) ([]model.Book, int64, error)
	FindByID(ctx context.Context, id int64) (model.Book, error)
}

// 在庫台帳。check-and-decrementは必ず1文のatomicなUPDATEで行う。
type InventoryRepository interface {
	// 在庫が足りるときだけ減算。足りなければfalse。
	ReserveStock(ctx context.Context, bookID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル時）
	ReleaseStock(ctx context.Context, bookID int64, qty int64) error
}
