package enums

import "testing"

func TestListingStatus(t *testing.T) {
	status, err := ParseListingStatus("approved")
	if err != nil || !status.Sellable() {
		t.Fatalf("expected sellable approved status, got %q err=%v", status, err)
	}
	if ListingStatusPending.Sellable() {
		t.Fatal("pending listings must not be sellable")
	}
	if _, err := ParseListingStatus("sold"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestOrderStatus(t *testing.T) {
	for _, raw := range []string{"placed", "confirmed", "delivered", "cancelled"} {
		status, err := ParseOrderStatus(raw)
		if err != nil || !status.IsValid() || status.String() != raw {
			t.Fatalf("round trip failed for %q: %v", raw, err)
		}
	}
	if OrderStatus("lost").IsValid() {
		t.Fatal("expected unknown status to be invalid")
	}
}
