package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"food-market/db"

	"github.com/jackc/pgx/v5"
)

type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Qty       int    `json:"qty"`
	LineTotal int64  `json:"line_total"`
}

type Cart struct {
	UserID     int64      `json:"user_id"`
	Items      []CartItem `json:"items"`
	TotalPrice int64      `json:"total_price"`
}

// Recalculate recomputes every line total and the cart total. Line totals
// stored in the input are ignored; quantities of zero or less drop the line.
func Recalculate(items []CartItem) ([]CartItem, int64) {
	var out []CartItem
	var total int64
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		it.LineTotal = it.UnitPrice * int64(it.Qty)
		total += it.LineTotal
		out = append(out, it)
	}
	return out, total
}

// mergeItem adds the item to the list, folding quantity into an existing line
// with the same product id.
func mergeItem(items []CartItem, item CartItem) []CartItem {
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Qty += item.Qty
			return items
		}
	}
	return append(items, item)
}

// setItemQty sets the quantity of the product's line. Qty 0 removes the line
// (Recalculate drops it). Unknown products are ignored.
func setItemQty(items []CartItem, productID string, qty int) []CartItem {
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Qty = qty
			break
		}
	}
	return items
}

// GetCart returns the user's cart; a missing row is an empty cart. Any other
// database error surfaces to the caller.
func GetCart(ctx context.Context, userID int64) (*Cart, error) {
	var itemsJSON []byte
	var total int64
	err := db.Pool.QueryRow(ctx, `
		SELECT items, total_price FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&itemsJSON, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Cart{UserID: userID, Items: []CartItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart for user %d: %w", userID, err)
	}

	var items []CartItem
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			return nil, fmt.Errorf("unmarshal cart items: %w", err)
		}
	}
	return &Cart{UserID: userID, Items: items, TotalPrice: total}, nil
}

// mutateCart applies the mutation to the user's cart under a row lock, so
// concurrent mutations for one user serialize instead of overwriting each
// other. The row is created on first touch; SELECT ... FOR UPDATE holds it
// for the rest of the transaction.
func mutateCart(ctx context.Context, userID int64, mutate func(items []CartItem) []CartItem) (*Cart, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure cart row: %w", err)
	}
	var itemsJSON []byte
	err = tx.QueryRow(ctx, `
		SELECT items FROM carts WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&itemsJSON)
	if err != nil {
		return nil, fmt.Errorf("lock cart for user %d: %w", userID, err)
	}
	var items []CartItem
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			return nil, fmt.Errorf("unmarshal cart items: %w", err)
		}
	}

	items, total := Recalculate(mutate(items))
	if items == nil {
		items = []CartItem{}
	}
	itemsJSON, err = json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart items: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE carts SET items = $2, total_price = $3, updated_at = now()
		WHERE user_id = $1`,
		userID, itemsJSON, total,
	)
	if err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &Cart{UserID: userID, Items: items, TotalPrice: total}, nil
}

// AddCartItem adds the item to the user's cart (merging by product id) and
// persists the recomputed totals.
func AddCartItem(ctx context.Context, userID int64, item CartItem) (*Cart, error) {
	if item.Qty <= 0 {
		return nil, fmt.Errorf("item quantity must be positive")
	}
	return mutateCart(ctx, userID, func(items []CartItem) []CartItem {
		return mergeItem(items, item)
	})
}

// SetCartItemQty sets a line's quantity; zero removes the line.
func SetCartItemQty(ctx context.Context, userID int64, productID string, qty int) (*Cart, error) {
	if qty < 0 {
		return nil, fmt.Errorf("quantity must not be negative")
	}
	return mutateCart(ctx, userID, func(items []CartItem) []CartItem {
		return setItemQty(items, productID, qty)
	})
}

func ClearCart(ctx context.Context, userID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	return err
}
