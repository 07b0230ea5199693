package models

// Module and action names used by the access policy table.
const (
	ModuleShop          = "shop"
	ModuleUser          = "user"
	ModuleProduct       = "product"
	ModuleWarehouse     = "warehouse"
	ModuleCustomer      = "customer"
	ModuleVendor        = "vendor"
	ModuleCustomerOrder = "customer_order"
	ModuleVendorOrder   = "vendor_order"
	ModuleTransfer      = "transfer"
	ModuleExpense       = "expense"
	ModuleReport        = "report"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

type policyKey struct {
	Role   UserRole
	Module string
	Action string
}

// policyTable is the single source of truth for role permissions. Handlers
// ask Can() instead of branching on roles themselves.
//
// Owners administer their shop and staff; managers run day-to-day inventory
// and purchasing but not shop/user administration; salesmen read everything
// in the shop and write only the sell-side flow.
var policyTable = buildPolicyTable()

func buildPolicyTable() map[policyKey]bool {
	t := make(map[policyKey]bool)

	allModules := []string{
		ModuleShop, ModuleUser, ModuleProduct, ModuleWarehouse,
		ModuleCustomer, ModuleVendor, ModuleCustomerOrder, ModuleVendorOrder,
		ModuleTransfer, ModuleExpense, ModuleReport,
	}

	// owner: everything within the shop
	for _, m := range allModules {
		t[policyKey{UserRoleOwner, m, ActionRead}] = true
		t[policyKey{UserRoleOwner, m, ActionWrite}] = true
	}

	// manager: everything except shop/user administration
	for _, m := range allModules {
		t[policyKey{UserRoleManager, m, ActionRead}] = true
		if m == ModuleShop || m == ModuleUser {
			continue
		}
		t[policyKey{UserRoleManager, m, ActionWrite}] = true
	}

	// salesman: read access plus the sell-side flow
	for _, m := range allModules {
		if m == ModuleShop || m == ModuleUser {
			continue
		}
		t[policyKey{UserRoleSalesman, m, ActionRead}] = true
	}
	t[policyKey{UserRoleSalesman, ModuleCustomer, ActionWrite}] = true
	t[policyKey{UserRoleSalesman, ModuleCustomerOrder, ActionWrite}] = true

	// admin: administrative endpoints only
	t[policyKey{UserRoleAdmin, ModuleShop, ActionRead}] = true
	t[policyKey{UserRoleAdmin, ModuleShop, ActionWrite}] = true
	t[policyKey{UserRoleAdmin, ModuleUser, ActionRead}] = true
	t[policyKey{UserRoleAdmin, ModuleUser, ActionWrite}] = true

	return t
}

// Can reports whether role may perform action on module.
func Can(role UserRole, module string, action string) bool {
	return policyTable[policyKey{role, module, action}]
}
