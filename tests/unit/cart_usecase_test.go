package unit

import (
	"context"
	"errors"
	"testing"

	"bookstore/internal/domain/model"
	repo "bookstore/internal/repository"
	"bookstore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCartMocks() (*CartRepoMock, *CartItemRepoMock, *BookRepoMock) {
	return new(CartRepoMock), new(CartItemRepoMock), new(BookRepoMock)
}

// 同じ本を追加すると数量が加算される
func TestCartUsecase_Add_MergesQuantity(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(cart, nil)
	books.On("FindByID", mock.Anything, int64(101)).Return(model.Book{
		ID: 101, Title: "Book A", Price: 1000, Stock: 10, IsActive: true,
	}, nil)
	// 既に2個入っている
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{
		{ID: 1, CartID: cart.ID, BookID: 101, Quantity: 2},
	}, nil).Once()
	cartItems.On("UpsertByCartAndBook", mock.Anything, cart.ID, int64(101), int64(3)).Return(nil)
	// 追加後の状態
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{
		{ID: 1, CartID: cart.ID, BookID: 101, Quantity: 5},
	}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	resp, err := uc.AddToCart(ctx, userID, usecase.AddCartInput{BookID: 101, Quantity: 3})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(resp.Items))
	assert.Equal(t, int64(5), resp.Items[0].Quantity)
	assert.Equal(t, int64(5000), resp.Total)
	cartItems.AssertExpectations(t)
}

// 加算後の数量が在庫を超えるなら409
func TestCartUsecase_Add_ExceedsStock(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(cart, nil)
	books.On("FindByID", mock.Anything, int64(101)).Return(model.Book{
		ID: 101, Price: 1000, Stock: 4, IsActive: true,
	}, nil)
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{
		{ID: 1, CartID: cart.ID, BookID: 101, Quantity: 3},
	}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	_, err := uc.AddToCart(ctx, userID, usecase.AddCartInput{BookID: 101, Quantity: 2})
	assertErrContains(t, err, "only 4 copies available in stock")
	cartItems.AssertNotCalled(t, "UpsertByCartAndBook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_Add_InactiveBook(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(model.Cart{ID: 3}, nil)
	books.On("FindByID", mock.Anything, int64(101)).Return(model.Book{
		ID: 101, Price: 1000, Stock: 10, IsActive: false,
	}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	_, err := uc.AddToCart(ctx, userID, usecase.AddCartInput{BookID: 101, Quantity: 1})
	assertErrContains(t, err, "invalid")
}

// 数量0以下は削除扱い。既に削除済みでもエラーにならない。
func TestCartUsecase_Update_ZeroQuantityDeletes(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	cartItems.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	cartItems.On("DeleteByID", mock.Anything, int64(1)).Return(nil)
	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(cart, nil)
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	resp, err := uc.UpdateCartItem(ctx, userID, 1, usecase.UpdateCartItemInput{Quantity: 0})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(resp.Items))
	assert.Equal(t, int64(0), resp.Total)
	cartItems.AssertCalled(t, "DeleteByID", mock.Anything, int64(1))
}

// 存在しない明細への数量0も、今のカートをそのまま返す
func TestCartUsecase_Update_ZeroQuantityOnMissingItem(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	cartItems.On("IsOwnedByUser", mock.Anything, int64(99), userID).Return(false, nil)
	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(cart, nil)
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	resp, err := uc.UpdateCartItem(ctx, userID, 99, usecase.UpdateCartItemInput{Quantity: -1})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), resp.Total)
	cartItems.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

// 他人の明細は404
func TestCartUsecase_Update_NotOwned(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	cartItems.On("IsOwnedByUser", mock.Anything, int64(1), int64(7)).Return(false, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	_, err := uc.UpdateCartItem(ctx, 7, 1, usecase.UpdateCartItemInput{Quantity: 2})
	assertErrContains(t, err, "not found")
	cartItems.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

// カートの合計は常にBookの現在価格で計算される
func TestCartUsecase_Get_UsesLivePrices(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(cart, nil)
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{
		{ID: 1, CartID: cart.ID, BookID: 101, Quantity: 2},
		{ID: 2, CartID: cart.ID, BookID: 102, Quantity: 1},
	}, nil)
	// 値上げ後の価格が反映される
	books.On("FindByID", mock.Anything, int64(101)).Return(model.Book{
		ID: 101, Title: "Book A", Price: 1200, Stock: 5, IsActive: true,
	}, nil)
	// 非公開になった本は一覧から消える
	books.On("FindByID", mock.Anything, int64(102)).Return(model.Book{
		ID: 102, Title: "Book B", Price: 500, Stock: 5, IsActive: false,
	}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	resp, err := uc.GetCart(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(resp.Items))
	assert.Equal(t, int64(1200), resp.Items[0].Price)
	assert.Equal(t, int64(2400), resp.Total)
}

// 消えた本（論理削除）だけ表示から外れる。他の行はそのまま。
func TestCartUsecase_Get_SkipsDeletedBookOnly(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(cart, nil)
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{
		{ID: 1, CartID: cart.ID, BookID: 101, Quantity: 1},
		{ID: 2, CartID: cart.ID, BookID: 102, Quantity: 2},
	}, nil)
	books.On("FindByID", mock.Anything, int64(101)).Return(model.Book{}, repo.ErrNotFound)
	books.On("FindByID", mock.Anything, int64(102)).Return(model.Book{
		ID: 102, Title: "Book B", Price: 500, Stock: 5, IsActive: true,
	}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	resp, err := uc.GetCart(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(resp.Items))
	assert.Equal(t, int64(102), resp.Items[0].BookID)
	assert.Equal(t, int64(1000), resp.Total)
}

// 一時的なDBエラーは行を黙って落とさず500で返す
func TestCartUsecase_Get_DBErrorIsNotSwallowed(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	carts.On("GetOrCreateActiveByUserID", mock.Anything, userID).Return(cart, nil)
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{
		{ID: 1, CartID: cart.ID, BookID: 101, Quantity: 1},
	}, nil)
	books.On("FindByID", mock.Anything, int64(101)).Return(model.Book{}, errors.New("connection reset"))

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	_, err := uc.GetCart(ctx, userID)
	assertErrContains(t, err, "db error")
}

// 明細削除の後はACTIVEカートの残りを返す
func TestCartUsecase_Delete_ReturnsRemaining(t *testing.T) {
	ctx := context.Background()
	carts, cartItems, books := newCartMocks()

	userID := int64(7)
	cart := model.Cart{ID: 3, UserID: userID, Status: model.CartStatusActive}

	cartItems.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	cartItems.On("DeleteByID", mock.Anything, int64(1)).Return(nil)
	carts.On("FindActiveByUserID", mock.Anything, userID).Return(cart, nil)
	cartItems.On("ListByCartID", mock.Anything, cart.ID).Return([]model.CartItem{
		{ID: 2, CartID: cart.ID, BookID: 102, Quantity: 1},
	}, nil)
	books.On("FindByID", mock.Anything, int64(102)).Return(model.Book{
		ID: 102, Title: "Book B", Price: 500, Stock: 5, IsActive: true,
	}, nil)

	uc := usecase.NewCartUsecase(carts, cartItems, books)

	resp, err := uc.DeleteCartItem(ctx, userID, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(resp.Items))
	assert.Equal(t, int64(500), resp.Total)
}
