package repository

import (
	"context"
	"errors"
	"time"

	repo "bookstore/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type txReposGorm struct {
	orders       repo.OrderRepository
	orderDetails repo.OrderDetailRepository
	carts        repo.CartRepository
	cartItems    repo.CartItemRepository
	inventory    repo.InventoryRepository
	books        repo.BookRepository
	payments     repo.PaymentRepository
	histories    repo.OrderHistoryRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) OrderDetails() repo.OrderDetailRepository { return r.orderDetails }
func (r *txReposGorm) Carts() repo.CartRepository               { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository       { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository      { return r.inventory }
func (r *txReposGorm) Books() repo.BookRepository               { return r.books }
func (r *txReposGorm) Payments() repo.PaymentRepository         { return r.payments }
func (r *txReposGorm) Histories() repo.OrderHistoryRepository   { return r.histories }

// リトライ上限。超えたらrepo.ErrTxConflictを返す。
const txMaxAttempts = 3

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	var err error

	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err = tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			//repoはtxを持ったDBで作り直す
			r := &txReposGorm{
				orders:       NewOrderGormRepository(tx),
				orderDetails: NewOrderDetailGormRepository(tx),
				carts:        NewCartGormRepository(tx),
				cartItems:    NewCartItemGormRepository(tx),
				inventory:    NewInventoryGormRepository(tx),
				books:        NewBookGormRepository(tx),
				payments:     NewPaymentGormRepository(tx),
				histories:    NewOrderHistoryGormRepository(tx),
			}
			return fn(r)
		})

		if !IsRetryableTxError(err) {
			return err
		}

		// serialization failure / deadlockだけ少し待ってやり直す
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}

	return repo.ErrTxConflict
}

// Postgresのserialization failure(40001)とdeadlock(40P01)だけリトライ対象。
func IsRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
