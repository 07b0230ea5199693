package models

import "testing"

func TestParseUserRole(t *testing.T) {
	for _, s := range []string{"A", "O", "M", "S"} {
		if _, err := ParseUserRole(s); err != nil {
			t.Errorf("ParseUserRole(%q): %v", s, err)
		}
	}
	for _, s := range []string{"", "a", "owner", "X"} {
		if _, err := ParseUserRole(s); err == nil {
			t.Errorf("ParseUserRole(%q): expected error", s)
		}
	}
}

func TestParseTransferDirection(t *testing.T) {
	if dir, err := ParseTransferDirection("SW"); err != nil || dir != TransferShopToWarehouse {
		t.Errorf("SW: got %q, %v", dir, err)
	}
	if dir, err := ParseTransferDirection("WS"); err != nil || dir != TransferWarehouseToShop {
		t.Errorf("WS: got %q, %v", dir, err)
	}
	for _, s := range []string{"", "sw", "shop_to_warehouse"} {
		if _, err := ParseTransferDirection(s); err == nil {
			t.Errorf("ParseTransferDirection(%q): expected error", s)
		}
	}
}
