package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/middlewares"
	"github.com/saif43/inventory-app-api/models"
	"github.com/saif43/inventory-app-api/models/reports"
	"github.com/saif43/inventory-app-api/utils"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func handleError(c *gin.Context, err error) {
	if !utils.IsDomainError(err) {
		config.LogError(config.GetLogger(), "server.go", c.FullPath(), "handler", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(utils.ErrorStatusCode(err), gin.H{"error": err.Error()})
}

// bindJSON binds the request body and, on failure, answers with the
// per-field validation map.
func bindJSON(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return false
	}
	return true
}

// requirePermission consults the policy table for the acting user's role.
// It replaces per-handler role branching.
func requirePermission(module string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr, ok := utils.GetUserRoleFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		role, err := models.ParseUserRole(roleStr)
		if err != nil || !models.Can(role, module, action) {
			c.JSON(http.StatusForbidden, gin.H{"error": utils.ErrorNotAllowed.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}

// adminScope marks the request to bypass tenant scoping. Only mounted on
// administrative routes that already passed the shop/user policy check.
func adminScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": utils.ErrorNotAllowed.Error()})
			c.Abort()
			return
		}
		ctx := utils.SetSkipTenantScopeInContext(c.Request.Context(), true)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// obtainShopLock is a best-effort per-shop redis lock. Correctness does not
// depend on it: every mutation also serializes via MySQL advisory locks
// inside the models package. If Redis is unavailable we proceed anyway.
func obtainShopLock(c *gin.Context, shopId string) *redislock.Lock {
	logger := config.GetLogger()
	redisLock := config.GetRedisLock()
	if redisLock == nil {
		return nil
	}

	lock, err := redisLock.Obtain(c.Request.Context(), fmt.Sprintf("lock:%s", shopId), 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		logger.WithFields(logrus.Fields{
			"field":   "obtainShopLock",
			"shop_id": shopId,
		}).Warn("could not obtain redis lock; proceeding without redis lock")
		return nil
	} else if err != nil {
		logger.WithFields(logrus.Fields{
			"field":   "obtainShopLock",
			"shop_id": shopId,
		}).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return nil
	}
	return lock
}

func releaseShopLock(c *gin.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	if err := lock.Release(c.Request.Context()); err != nil {
		config.GetLogger().WithFields(logrus.Fields{
			"field": "releaseShopLock",
		}).Warn("failed to release redis lock: " + err.Error())
	}
}

// actingShop resolves the shop the request acts on, exactly once per
// request. Handlers pass the result down instead of re-resolving. The shop id
// also lands in the request context, which arms the tenant-guard plugin for
// every query the handler runs.
func actingShop(c *gin.Context) (*models.Shop, bool) {
	shop, err := models.ResolveActingShop(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return nil, false
	}
	ctx := utils.SetShopIdInContext(c.Request.Context(), shop.ID.String())
	c.Request = c.Request.WithContext(ctx)
	return shop, true
}

func paramInt(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryIntPtr(c *gin.Context, name string) *int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return &n
	}
	return nil
}

func queryStrPtr(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

// --- auth ---

func registerHandler(c *gin.Context) {
	var input models.NewUser
	if !bindJSON(c, &input) {
		return
	}
	user, err := models.RegisterUser(c.Request.Context(), &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func loginHandler(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}
	info, err := models.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func logoutHandler(c *gin.Context) {
	if _, err := models.Logout(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func meHandler(c *gin.Context) {
	user, err := models.GetMe(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// --- staff / users ---

func createStaffHandler(c *gin.Context) {
	var input models.NewUser
	if !bindJSON(c, &input) {
		return
	}
	staff, err := models.CreateStaff(c.Request.Context(), &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}

func listStaffHandler(c *gin.Context) {
	var role *models.UserRole
	if v := strings.TrimSpace(c.Query("role")); v != "" {
		parsed, err := models.ParseUserRole(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		role = &parsed
	}
	staff, err := models.ListStaff(c.Request.Context(), role)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func listAllUsersHandler(c *gin.Context) {
	users, err := models.GetAllUsers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func toggleActiveUserHandler(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}
	user, err := models.ToggleActiveUser(c.Request.Context(), id, *input.IsActive)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// --- shop ---

func createShopHandler(c *gin.Context) {
	var input models.NewShop
	if !bindJSON(c, &input) {
		return
	}
	shop, err := models.CreateShop(c.Request.Context(), &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shop)
}

func myShopHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, shop)
}

func updateShopHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewShop
	if !bindJSON(c, &input) {
		return
	}
	updated, err := models.UpdateShop(c.Request.Context(), shop.ID.String(), &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func listShopsHandler(c *gin.Context) {
	shops, err := models.ListShops(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, shops)
}

// --- products ---

func createProductHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func updateProductHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), shop, id, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func deleteProductHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	product, err := models.DeleteProduct(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func getProductHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	product, err := models.GetProduct(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func listProductsHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	products, err := models.ListProducts(c.Request.Context(), shop, queryStrPtr(c, "name"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func listLowStockProductsHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	products, err := models.ListLowStockProducts(c.Request.Context(), shop)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// --- warehouses ---

func createWarehouseHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewWarehouse
	if !bindJSON(c, &input) {
		return
	}
	warehouse, err := models.CreateWarehouse(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, warehouse)
}

func updateWarehouseHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewWarehouse
	if !bindJSON(c, &input) {
		return
	}
	warehouse, err := models.UpdateWarehouse(c.Request.Context(), shop, id, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func deleteWarehouseHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	warehouse, err := models.DeleteWarehouse(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouse)
}

func listWarehousesHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	warehouses, err := models.ListWarehouses(c.Request.Context(), shop, queryStrPtr(c, "name"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouses)
}

func listWarehouseStockHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	stock, err := models.ListWarehouseStock(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

// --- customers / vendors ---

func createCustomerHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewCustomer
	if !bindJSON(c, &input) {
		return
	}
	customer, err := models.CreateCustomer(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func updateCustomerHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewCustomer
	if !bindJSON(c, &input) {
		return
	}
	customer, err := models.UpdateCustomer(c.Request.Context(), shop, id, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func deleteCustomerHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	customer, err := models.DeleteCustomer(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func listCustomersHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	customers, err := models.ListCustomers(c.Request.Context(), shop, queryStrPtr(c, "name"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func createVendorHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewVendor
	if !bindJSON(c, &input) {
		return
	}
	vendor, err := models.CreateVendor(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vendor)
}

func updateVendorHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewVendor
	if !bindJSON(c, &input) {
		return
	}
	vendor, err := models.UpdateVendor(c.Request.Context(), shop, id, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}

func deleteVendorHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	vendor, err := models.DeleteVendor(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}

func listVendorsHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	vendors, err := models.ListVendors(c.Request.Context(), shop, queryStrPtr(c, "name"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendors)
}

// --- orders & lines ---

func createCustomerOrderHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewCustomerTransaction
	if !bindJSON(c, &input) {
		return
	}
	order, err := models.CreateCustomerTransaction(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func listCustomerOrdersHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	orders, err := models.ListCustomerTransactions(c.Request.Context(), shop, queryIntPtr(c, "customer_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func getCustomerOrderHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	order, err := models.GetCustomerTransaction(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func createSellLineHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewSellLine
	if !bindJSON(c, &input) {
		return
	}
	lock := obtainShopLock(c, shop.ID.String())
	defer releaseShopLock(c, lock)

	result, err := models.CreateSellLine(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func updateSellLineHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.UpdateSellLineInput
	if !bindJSON(c, &input) {
		return
	}
	lock := obtainShopLock(c, shop.ID.String())
	defer releaseShopLock(c, lock)

	result, err := models.UpdateSellLine(c.Request.Context(), shop, id, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func listSellLinesHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	lines, err := models.ListSellLines(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

func createVendorOrderHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewVendorTransaction
	if !bindJSON(c, &input) {
		return
	}
	order, err := models.CreateVendorTransaction(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func listVendorOrdersHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	orders, err := models.ListVendorTransactions(c.Request.Context(), shop, queryIntPtr(c, "vendor_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func getVendorOrderHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	order, err := models.GetVendorTransaction(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func createBuyLineHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewBuyLine
	if !bindJSON(c, &input) {
		return
	}
	lock := obtainShopLock(c, shop.ID.String())
	defer releaseShopLock(c, lock)

	result, err := models.CreateBuyLine(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func listBuyLinesHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	lines, err := models.ListBuyLines(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

// --- bills & payments ---

func getCustomerBillHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	bill, err := models.GetCustomerBillByOrder(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func settleCustomerBillHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewPayment
	if !bindJSON(c, &input) {
		return
	}
	lock := obtainShopLock(c, shop.ID.String())
	defer releaseShopLock(c, lock)

	bill, err := models.SettleCustomerBill(c.Request.Context(), shop, id, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func getVendorBillHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	bill, err := models.GetVendorBillByOrder(c.Request.Context(), shop, id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

func settleVendorBillHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	var input models.NewPayment
	if !bindJSON(c, &input) {
		return
	}
	lock := obtainShopLock(c, shop.ID.String())
	defer releaseShopLock(c, lock)

	bill, err := models.SettleVendorBill(c.Request.Context(), shop, id, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, bill)
}

// --- transfers ---

func createTransferHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewStockTransfer
	if !bindJSON(c, &input) {
		return
	}
	lock := obtainShopLock(c, shop.ID.String())
	defer releaseShopLock(c, lock)

	transfer, err := models.Transfer(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transfer)
}

func listTransfersHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	transfers, err := models.ListTransfers(c.Request.Context(), shop,
		queryIntPtr(c, "warehouse_id"), queryIntPtr(c, "product_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfers)
}

// --- expenses ---

func createExpenseHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	var input models.NewExpense
	if !bindJSON(c, &input) {
		return
	}
	lock := obtainShopLock(c, shop.ID.String())
	defer releaseShopLock(c, lock)

	expense, err := models.CreateExpense(c.Request.Context(), shop, &input)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}

func listExpensesHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	expenses, err := models.ListExpenses(c.Request.Context(), shop)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

// --- reports ---

func dailyBillReportHandler(c *gin.Context) {
	shop, ok := actingShop(c)
	if !ok {
		return
	}
	fromDate := strings.TrimSpace(c.Query("from"))
	toDate := strings.TrimSpace(c.Query("to"))
	if fromDate == "" || toDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to dates are required"})
		return
	}
	for _, d := range []string{fromDate, toDate} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be formatted 2006-01-02"})
			return
		}
	}

	report, err := reports.GetDailyBillReport(c.Request.Context(), shop, fromDate, toDate)
	if err != nil {
		handleError(c, err)
		return
	}

	if c.Query("format") == "xlsx" {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=daily-bill-report.xlsx")
		if err := reports.ExportDailyBillReport(c.Writer, report); err != nil {
			config.LogError(config.GetLogger(), "server.go", "dailyBillReportHandler", "ExportDailyBillReport", nil, err)
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

func registerRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", registerHandler)
		auth.POST("/login", loginHandler)
		auth.POST("/logout", middlewares.RequireAuth(), logoutHandler)
		auth.GET("/me", middlewares.RequireAuth(), meHandler)
	}

	api := r.Group("/api", middlewares.RequireAuth())
	{
		api.POST("/shop", requirePermission(models.ModuleShop, models.ActionWrite), createShopHandler)
		api.GET("/shop", myShopHandler)
		api.PUT("/shop", requirePermission(models.ModuleShop, models.ActionWrite), updateShopHandler)

		api.POST("/staff", requirePermission(models.ModuleUser, models.ActionWrite), createStaffHandler)
		api.GET("/staff", requirePermission(models.ModuleUser, models.ActionRead), listStaffHandler)
		api.PUT("/staff/:id/active", requirePermission(models.ModuleUser, models.ActionWrite), toggleActiveUserHandler)

		api.POST("/products", requirePermission(models.ModuleProduct, models.ActionWrite), createProductHandler)
		api.GET("/products", requirePermission(models.ModuleProduct, models.ActionRead), listProductsHandler)
		api.GET("/low-stock-products", requirePermission(models.ModuleProduct, models.ActionRead), listLowStockProductsHandler)
		api.GET("/products/:id", requirePermission(models.ModuleProduct, models.ActionRead), getProductHandler)
		api.PUT("/products/:id", requirePermission(models.ModuleProduct, models.ActionWrite), updateProductHandler)
		api.DELETE("/products/:id", requirePermission(models.ModuleProduct, models.ActionWrite), deleteProductHandler)

		api.POST("/warehouses", requirePermission(models.ModuleWarehouse, models.ActionWrite), createWarehouseHandler)
		api.GET("/warehouses", requirePermission(models.ModuleWarehouse, models.ActionRead), listWarehousesHandler)
		api.PUT("/warehouses/:id", requirePermission(models.ModuleWarehouse, models.ActionWrite), updateWarehouseHandler)
		api.DELETE("/warehouses/:id", requirePermission(models.ModuleWarehouse, models.ActionWrite), deleteWarehouseHandler)
		api.GET("/warehouses/:id/stock", requirePermission(models.ModuleWarehouse, models.ActionRead), listWarehouseStockHandler)

		api.POST("/customers", requirePermission(models.ModuleCustomer, models.ActionWrite), createCustomerHandler)
		api.GET("/customers", requirePermission(models.ModuleCustomer, models.ActionRead), listCustomersHandler)
		api.PUT("/customers/:id", requirePermission(models.ModuleCustomer, models.ActionWrite), updateCustomerHandler)
		api.DELETE("/customers/:id", requirePermission(models.ModuleCustomer, models.ActionWrite), deleteCustomerHandler)

		api.POST("/vendors", requirePermission(models.ModuleVendor, models.ActionWrite), createVendorHandler)
		api.GET("/vendors", requirePermission(models.ModuleVendor, models.ActionRead), listVendorsHandler)
		api.PUT("/vendors/:id", requirePermission(models.ModuleVendor, models.ActionWrite), updateVendorHandler)
		api.DELETE("/vendors/:id", requirePermission(models.ModuleVendor, models.ActionWrite), deleteVendorHandler)

		api.POST("/customer-orders", requirePermission(models.ModuleCustomerOrder, models.ActionWrite), createCustomerOrderHandler)
		api.GET("/customer-orders", requirePermission(models.ModuleCustomerOrder, models.ActionRead), listCustomerOrdersHandler)
		api.GET("/customer-orders/:id", requirePermission(models.ModuleCustomerOrder, models.ActionRead), getCustomerOrderHandler)
		api.GET("/customer-orders/:id/lines", requirePermission(models.ModuleCustomerOrder, models.ActionRead), listSellLinesHandler)
		api.GET("/customer-orders/:id/bill", requirePermission(models.ModuleCustomerOrder, models.ActionRead), getCustomerBillHandler)
		api.POST("/sell-lines", requirePermission(models.ModuleCustomerOrder, models.ActionWrite), createSellLineHandler)
		api.PUT("/sell-lines/:id", requirePermission(models.ModuleCustomerOrder, models.ActionWrite), updateSellLineHandler)
		api.POST("/customer-bills/:id/payments", requirePermission(models.ModuleCustomerOrder, models.ActionWrite), settleCustomerBillHandler)

		api.POST("/vendor-orders", requirePermission(models.ModuleVendorOrder, models.ActionWrite), createVendorOrderHandler)
		api.GET("/vendor-orders", requirePermission(models.ModuleVendorOrder, models.ActionRead), listVendorOrdersHandler)
		api.GET("/vendor-orders/:id", requirePermission(models.ModuleVendorOrder, models.ActionRead), getVendorOrderHandler)
		api.GET("/vendor-orders/:id/lines", requirePermission(models.ModuleVendorOrder, models.ActionRead), listBuyLinesHandler)
		api.GET("/vendor-orders/:id/bill", requirePermission(models.ModuleVendorOrder, models.ActionRead), getVendorBillHandler)
		api.POST("/buy-lines", requirePermission(models.ModuleVendorOrder, models.ActionWrite), createBuyLineHandler)
		api.POST("/vendor-bills/:id/payments", requirePermission(models.ModuleVendorOrder, models.ActionWrite), settleVendorBillHandler)

		api.POST("/transfers", requirePermission(models.ModuleTransfer, models.ActionWrite), createTransferHandler)
		api.GET("/transfers", requirePermission(models.ModuleTransfer, models.ActionRead), listTransfersHandler)

		api.POST("/expenses", requirePermission(models.ModuleExpense, models.ActionWrite), createExpenseHandler)
		api.GET("/expenses", requirePermission(models.ModuleExpense, models.ActionRead), listExpensesHandler)

		api.GET("/reports/daily-bills", requirePermission(models.ModuleReport, models.ActionRead), dailyBillReportHandler)
	}

	admin := r.Group("/admin", middlewares.RequireAuth(), adminScope())
	{
		admin.GET("/shops", requirePermission(models.ModuleShop, models.ActionRead), listShopsHandler)
		admin.GET("/users", requirePermission(models.ModuleUser, models.ActionRead), listAllUsersHandler)
		admin.PUT("/users/:id/active", requirePermission(models.ModuleUser, models.ActionWrite), toggleActiveUserHandler)
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func main() {
	_ = godotenv.Load()
	logger := config.GetLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated). In non-production, allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	r.Use(middlewares.AuthMiddleware())

	registerRoutes(r)

	// Start listening immediately (startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables under load. Allow disabling
	// migrations on startup and running them as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port, "/")
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
