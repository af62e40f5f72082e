package repository

import (
	"context"
	"errors"
)

// リトライ上限まで競合が解消しなかったときに実装が返す。
var ErrTxConflict = errors.New("transaction conflict")

// トランザクション内で使う約束
type TxRepos interface {
	Orders() OrderRepository
	OrderDetails() OrderDetailRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Inventory() InventoryRepository
	Books() BookRepository
	Payments() PaymentRepository
	Histories() OrderHistoryRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// serialization failure等のとき、実装はfnを限定回数リトライしてよい。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
