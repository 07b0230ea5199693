package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/models"
	"github.com/saif43/inventory-app-api/models/reports"
	"github.com/saif43/inventory-app-api/utils"
	"github.com/shopspring/decimal"
)

func TestSellBuySettleTransferLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "inventory_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	models.MigrateTable()

	// Owner signup and shop creation.
	owner, err := models.RegisterUser(ctx, &models.NewUser{
		Username: "owner1",
		Name:     "Owner One",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	ctx = utils.SetUserIdInContext(ctx, owner.ID)
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleOwner))
	ctx = utils.SetUsernameInContext(ctx, owner.Username)

	shop, err := models.CreateShop(ctx, &models.NewShop{Name: "Corner Shop"})
	if err != nil {
		t.Fatalf("CreateShop: %v", err)
	}
	ctx = utils.SetShopIdInContext(ctx, shop.ID.String())

	resolved, err := models.ResolveActingShop(ctx)
	if err != nil {
		t.Fatalf("ResolveActingShop: %v", err)
	}
	if resolved.ID != shop.ID {
		t.Fatalf("resolved shop %s, want %s", resolved.ID, shop.ID)
	}

	// Catalog.
	pen, err := models.CreateProduct(ctx, shop, &models.NewProduct{
		Name:         "Pen",
		BuyingPrice:  decimal.NewFromInt(5),
		SellingPrice: decimal.NewFromInt(9),
		Stock:        5,
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	customer, err := models.CreateCustomer(ctx, shop, &models.NewCustomer{Name: "Rahim"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	vendor, err := models.CreateVendor(ctx, shop, &models.NewVendor{Name: "Pen Wholesale"})
	if err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	warehouse, err := models.CreateWarehouse(ctx, shop, &models.NewWarehouse{Name: "Back Room"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}

	// --- sell flow ---

	sellOrder, err := models.CreateCustomerTransaction(ctx, shop, &models.NewCustomerTransaction{CustomerId: customer.ID})
	if err != nil {
		t.Fatalf("CreateCustomerTransaction: %v", err)
	}

	// order creation opens a zero bill
	bill, err := models.GetCustomerBillByOrder(ctx, shop, sellOrder.ID)
	if err != nil {
		t.Fatalf("GetCustomerBillByOrder: %v", err)
	}
	if !bill.TotalBill.IsZero() || !bill.Due.IsZero() {
		t.Fatalf("new bill not zero: total=%s due=%s", bill.TotalBill, bill.Due)
	}

	sellRes, err := models.CreateSellLine(ctx, shop, &models.NewSellLine{
		OrderId:   sellOrder.ID,
		ProductId: pen.ID,
		Quantity:  3,
		UnitPrice: decimal.NewFromInt(7),
	})
	if err != nil {
		t.Fatalf("CreateSellLine: %v", err)
	}
	if !sellRes.Bill.TotalBill.Equal(decimal.NewFromInt(21)) {
		t.Fatalf("bill total after sell line: %s, want 21", sellRes.Bill.TotalBill)
	}
	if p, _ := models.GetProduct(ctx, shop, pen.ID); p.Stock != 2 {
		t.Fatalf("stock after sell line: %d, want 2", p.Stock)
	}

	// second line for the same product is rejected
	_, err = models.CreateSellLine(ctx, shop, &models.NewSellLine{
		OrderId:   sellOrder.ID,
		ProductId: pen.ID,
		Quantity:  1,
		UnitPrice: decimal.NewFromInt(7),
	})
	if err != utils.ErrorDuplicateLine {
		t.Fatalf("duplicate sell line: got %v, want ErrorDuplicateLine", err)
	}

	// raising quantity past available stock is rejected without side effects
	_, err = models.UpdateSellLine(ctx, shop, sellRes.Line.ID, &models.UpdateSellLineInput{Quantity: 6})
	if err != utils.ErrorInsufficientStock {
		t.Fatalf("oversell update: got %v, want ErrorInsufficientStock", err)
	}
	if p, _ := models.GetProduct(ctx, shop, pen.ID); p.Stock != 2 {
		t.Fatalf("stock changed by rejected update: %d", p.Stock)
	}

	// quantity update re-bills at the product's list selling price
	updRes, err := models.UpdateSellLine(ctx, shop, sellRes.Line.ID, &models.UpdateSellLineInput{Quantity: 5})
	if err != nil {
		t.Fatalf("UpdateSellLine: %v", err)
	}
	if !updRes.Bill.TotalBill.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("bill after update: %s, want 45 (5 x list price 9)", updRes.Bill.TotalBill)
	}
	if p, _ := models.GetProduct(ctx, shop, pen.ID); p.Stock != 0 {
		t.Fatalf("stock after update to 5: %d, want 0", p.Stock)
	}

	// --- customer settlement ---

	_, err = models.SettleCustomerBill(ctx, shop, updRes.Bill.ID, &models.NewPayment{Amount: decimal.NewFromInt(50)})
	if err != utils.ErrorOverPaid {
		t.Fatalf("overpay: got %v, want ErrorOverPaid", err)
	}

	settled, err := models.SettleCustomerBill(ctx, shop, updRes.Bill.ID, &models.NewPayment{Amount: decimal.NewFromInt(30)})
	if err != nil {
		t.Fatalf("SettleCustomerBill: %v", err)
	}
	if !settled.Due.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("due after partial payment: %s, want 15", settled.Due)
	}
	shopNow, err := models.GetShopById(ctx, shop.ID.String())
	if err != nil {
		t.Fatalf("GetShopById: %v", err)
	}
	if !shopNow.Money.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("shop cash after settlement: %s, want 30", shopNow.Money)
	}

	// --- buy flow ---

	buyOrder, err := models.CreateVendorTransaction(ctx, shop, &models.NewVendorTransaction{VendorId: vendor.ID})
	if err != nil {
		t.Fatalf("CreateVendorTransaction: %v", err)
	}

	// missing warehouse is rejected up front
	_, err = models.CreateBuyLine(ctx, shop, &models.NewBuyLine{
		OrderId:   buyOrder.ID,
		ProductId: pen.ID,
		Quantity:  10,
		UnitPrice: decimal.NewFromInt(10),
	})
	if err != utils.ErrorMissingWarehouse {
		t.Fatalf("buy line without warehouse: got %v, want ErrorMissingWarehouse", err)
	}

	_, err = models.CreateBuyLine(ctx, shop, &models.NewBuyLine{
		OrderId:     buyOrder.ID,
		ProductId:   pen.ID,
		WarehouseId: warehouse.ID,
		Quantity:    10,
		UnitPrice:   decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateBuyLine: %v", err)
	}
	if p, _ := models.GetProduct(ctx, shop, pen.ID); p.Stock != 10 || !p.AvgBuyingPrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("after first buy: stock=%d avg=%s, want 10/10", p.Stock, p.AvgBuyingPrice)
	}

	// second purchase at 15 moves the running average to 12.5
	warehouse2, err := models.CreateWarehouse(ctx, shop, &models.NewWarehouse{Name: "Attic"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	_, err = models.CreateBuyLine(ctx, shop, &models.NewBuyLine{
		OrderId:     buyOrder.ID,
		ProductId:   pen.ID,
		WarehouseId: warehouse2.ID,
		Quantity:    4,
		UnitPrice:   decimal.NewFromInt(15),
	})
	if err != nil {
		t.Fatalf("second CreateBuyLine: %v", err)
	}
	if p, _ := models.GetProduct(ctx, shop, pen.ID); p.Stock != 14 || !p.AvgBuyingPrice.Equal(decimal.NewFromFloat(12.5)) {
		t.Fatalf("after second buy: stock=%d avg=%s, want 14/12.5", p.Stock, p.AvgBuyingPrice)
	}

	// --- vendor settlement ---

	vendorBill, err := models.GetVendorBillByOrder(ctx, shop, buyOrder.ID)
	if err != nil {
		t.Fatalf("GetVendorBillByOrder: %v", err)
	}
	if !vendorBill.TotalBill.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("vendor bill total: %s, want 160", vendorBill.TotalBill)
	}

	// cash is 30, paying 100 must bounce without touching the bill
	_, err = models.SettleVendorBill(ctx, shop, vendorBill.ID, &models.NewPayment{Amount: decimal.NewFromInt(100)})
	if err != utils.ErrorInsufficientFunds {
		t.Fatalf("vendor settlement beyond cash: got %v, want ErrorInsufficientFunds", err)
	}

	vb, err := models.SettleVendorBill(ctx, shop, vendorBill.ID, &models.NewPayment{Amount: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("SettleVendorBill: %v", err)
	}
	if !vb.Due.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("vendor due after payment: %s, want 140", vb.Due)
	}
	shopNow, _ = models.GetShopById(ctx, shop.ID.String())
	if !shopNow.Money.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("shop cash after vendor payment: %s, want 10", shopNow.Money)
	}

	// --- transfers ---

	// shop floor holds 14 pens; move 6 to the back room and verify the units
	// are conserved across both sides
	if _, err := models.Transfer(ctx, shop, &models.NewStockTransfer{
		WarehouseId: warehouse.ID,
		ProductId:   pen.ID,
		Quantity:    6,
		Direction:   "SW",
	}); err != nil {
		t.Fatalf("Transfer SW: %v", err)
	}
	p, _ := models.GetProduct(ctx, shop, pen.ID)
	stockRows, err := models.ListWarehouseStock(ctx, shop, warehouse.ID)
	if err != nil {
		t.Fatalf("ListWarehouseStock: %v", err)
	}
	if p.Stock != 8 || len(stockRows) != 1 || stockRows[0].Qty != 6 {
		t.Fatalf("after SW transfer: shop=%d warehouse rows=%v", p.Stock, stockRows)
	}

	// moving more out of the shop than it holds is rejected
	_, err = models.Transfer(ctx, shop, &models.NewStockTransfer{
		WarehouseId: warehouse.ID,
		ProductId:   pen.ID,
		Quantity:    9,
		Direction:   "SW",
	})
	if err != utils.ErrorInsufficientShopStock {
		t.Fatalf("SW transfer beyond stock: got %v, want ErrorInsufficientShopStock", err)
	}

	// a rejected shop-to-warehouse move leaves no ledger row behind
	warehouse3, err := models.CreateWarehouse(ctx, shop, &models.NewWarehouse{Name: "Cellar"})
	if err != nil {
		t.Fatalf("CreateWarehouse: %v", err)
	}
	_, err = models.Transfer(ctx, shop, &models.NewStockTransfer{
		WarehouseId: warehouse3.ID,
		ProductId:   pen.ID,
		Quantity:    9,
		Direction:   "SW",
	})
	if err != utils.ErrorInsufficientShopStock {
		t.Fatalf("SW transfer beyond stock: got %v, want ErrorInsufficientShopStock", err)
	}
	rows3, err := models.ListWarehouseStock(ctx, shop, warehouse3.ID)
	if err != nil {
		t.Fatalf("ListWarehouseStock: %v", err)
	}
	if len(rows3) != 0 {
		t.Fatalf("rejected SW transfer should leave no ledger row, got %v", rows3)
	}

	// pulling from a warehouse that never held the product is rejected, but
	// leaves a zero-qty ledger row behind
	_, err = models.Transfer(ctx, shop, &models.NewStockTransfer{
		WarehouseId: warehouse2.ID,
		ProductId:   pen.ID,
		Quantity:    1,
		Direction:   "WS",
	})
	if err != utils.ErrorInsufficientWarehouseStock {
		t.Fatalf("WS transfer from empty warehouse: got %v, want ErrorInsufficientWarehouseStock", err)
	}
	rows2, err := models.ListWarehouseStock(ctx, shop, warehouse2.ID)
	if err != nil {
		t.Fatalf("ListWarehouseStock: %v", err)
	}
	if len(rows2) != 1 || rows2[0].Qty != 0 {
		t.Fatalf("rejected WS transfer should leave a zero-qty row, got %v", rows2)
	}

	// round trip back to the shop floor conserves units
	if _, err := models.Transfer(ctx, shop, &models.NewStockTransfer{
		WarehouseId: warehouse.ID,
		ProductId:   pen.ID,
		Quantity:    6,
		Direction:   "WS",
	}); err != nil {
		t.Fatalf("Transfer WS: %v", err)
	}
	p, _ = models.GetProduct(ctx, shop, pen.ID)
	if p.Stock != 14 {
		t.Fatalf("stock after round trip: %d, want 14", p.Stock)
	}

	transfers, err := models.ListTransfers(ctx, shop, nil, nil)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("audit rows: %d, want 2 (rejections leave none)", len(transfers))
	}

	// --- expenses ---

	_, err = models.CreateExpense(ctx, shop, &models.NewExpense{Description: "rent", Amount: decimal.NewFromInt(100)})
	if err != utils.ErrorInsufficientFunds {
		t.Fatalf("expense beyond cash: got %v, want ErrorInsufficientFunds", err)
	}
	if _, err := models.CreateExpense(ctx, shop, &models.NewExpense{Description: "tea", Amount: decimal.NewFromInt(4)}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	shopNow, _ = models.GetShopById(ctx, shop.ID.String())
	if !shopNow.Money.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("shop cash after expense: %s, want 6", shopNow.Money)
	}

	// --- report ---

	today := time.Now().Format("2006-01-02")
	report, err := reports.GetDailyBillReport(ctx, shop, today, today)
	if err != nil {
		t.Fatalf("GetDailyBillReport: %v", err)
	}
	if !report.TotalSales.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("report total sales: %s, want 45", report.TotalSales)
	}
	if !report.TotalPurchases.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("report total purchases: %s, want 160", report.TotalPurchases)
	}

	// --- staff deactivation revokes live sessions ---

	staff, err := models.CreateStaff(ctx, &models.NewUser{
		Username: "sales1",
		Name:     "Sales One",
		Password: "secret1",
		Role:     "S",
	})
	if err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	login, err := models.Login(ctx, "sales1", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, ok, _ := config.GetRedisValue("Token:" + login.Token); !ok {
		t.Fatal("staff session not stored after login")
	}
	if _, err := models.ToggleActiveUser(ctx, staff.ID, false); err != nil {
		t.Fatalf("ToggleActiveUser: %v", err)
	}
	if _, ok, _ := config.GetRedisValue("Token:" + login.Token); ok {
		t.Fatal("deactivation left a live session behind")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("inventory-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("inventory-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=inventory_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
