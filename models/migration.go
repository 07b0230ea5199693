package models

import (
	"log"

	"github.com/saif43/inventory-app-api/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Shop{}, &User{},
		&Product{}, &Warehouse{}, &WarehouseStock{}, &StockTransfer{},
		&Customer{}, &Vendor{},
		&CustomerTransaction{}, &CustomerOrderedItem{}, &CustomerBill{},
		&VendorTransaction{}, &VendorOrderedItem{}, &VendorBill{},
		&Expense{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
