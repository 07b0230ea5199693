package models

import "testing"

func TestPolicyOwnerHasFullShopAccess(t *testing.T) {
	modules := []string{
		ModuleShop, ModuleUser, ModuleProduct, ModuleWarehouse,
		ModuleCustomer, ModuleVendor, ModuleCustomerOrder, ModuleVendorOrder,
		ModuleTransfer, ModuleExpense, ModuleReport,
	}
	for _, m := range modules {
		if !Can(UserRoleOwner, m, ActionRead) {
			t.Errorf("owner should read %s", m)
		}
		if !Can(UserRoleOwner, m, ActionWrite) {
			t.Errorf("owner should write %s", m)
		}
	}
}

func TestPolicyManagerCannotAdministerShopOrUsers(t *testing.T) {
	if Can(UserRoleManager, ModuleShop, ActionWrite) {
		t.Error("manager must not write shop")
	}
	if Can(UserRoleManager, ModuleUser, ActionWrite) {
		t.Error("manager must not write user")
	}
	if !Can(UserRoleManager, ModuleShop, ActionRead) {
		t.Error("manager should read shop")
	}
	if !Can(UserRoleManager, ModuleVendorOrder, ActionWrite) {
		t.Error("manager should write vendor orders")
	}
	if !Can(UserRoleManager, ModuleTransfer, ActionWrite) {
		t.Error("manager should write transfers")
	}
}

func TestPolicySalesmanWritesSellSideOnly(t *testing.T) {
	if !Can(UserRoleSalesman, ModuleCustomer, ActionWrite) {
		t.Error("salesman should write customers")
	}
	if !Can(UserRoleSalesman, ModuleCustomerOrder, ActionWrite) {
		t.Error("salesman should write customer orders")
	}
	for _, m := range []string{ModuleProduct, ModuleWarehouse, ModuleVendor, ModuleVendorOrder, ModuleTransfer, ModuleExpense, ModuleReport} {
		if Can(UserRoleSalesman, m, ActionWrite) {
			t.Errorf("salesman must not write %s", m)
		}
		if !Can(UserRoleSalesman, m, ActionRead) {
			t.Errorf("salesman should read %s", m)
		}
	}
	if Can(UserRoleSalesman, ModuleShop, ActionRead) {
		t.Error("salesman must not read shop administration")
	}
}

func TestPolicyAdminIsAdministrativeOnly(t *testing.T) {
	if !Can(UserRoleAdmin, ModuleShop, ActionRead) || !Can(UserRoleAdmin, ModuleUser, ActionWrite) {
		t.Error("admin should access shop and user administration")
	}
	for _, m := range []string{ModuleProduct, ModuleCustomerOrder, ModuleTransfer, ModuleExpense} {
		if Can(UserRoleAdmin, m, ActionRead) || Can(UserRoleAdmin, m, ActionWrite) {
			t.Errorf("admin must not access %s", m)
		}
	}
}

func TestPolicyUnknownRoleDeniedEverything(t *testing.T) {
	if Can(UserRole("X"), ModuleProduct, ActionRead) {
		t.Error("unknown role must be denied")
	}
}
