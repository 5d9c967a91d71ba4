package tradeengine

import "testing"

func TestBuyCommandRejectsOutOfRangeIntensity(t *testing.T) {
	if _, err := BuyCommand(0, Maker); err != ErrInvalidIntensity {
		t.Fatalf("intensity 0 should be rejected, got %v", err)
	}
	if _, err := BuyCommand(100.01, Maker); err != ErrInvalidIntensity {
		t.Fatalf("intensity >100 should be rejected, got %v", err)
	}
	if _, err := BuyCommand(50, Taker); err != nil {
		t.Fatalf("intensity 50 should be accepted, got %v", err)
	}
}

func TestCancelAllSentinel(t *testing.T) {
	c := CancelAllCommand()
	if !c.IsCancelAll() {
		t.Fatal("CancelAllCommand should report IsCancelAll")
	}
	single := CancelCommand(42)
	if single.IsCancelAll() {
		t.Fatal("CancelCommand(42) should not be IsCancelAll")
	}
	if single.OrderID() != 42 {
		t.Fatalf("OrderID() = %d, want 42", single.OrderID())
	}
}

func TestWaitIsNeitherBuyNorSell(t *testing.T) {
	w := Wait()
	if !w.IsWait() || w.IsBuy() || w.IsSell() || w.IsCancel() || w.IsUpdatePrice() {
		t.Fatalf("Wait() command classified incorrectly: %+v", w)
	}
}
