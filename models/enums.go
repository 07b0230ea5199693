package models

import "errors"

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleOwner    UserRole = "O"
	UserRoleManager  UserRole = "M"
	UserRoleSalesman UserRole = "S"
)

func ParseUserRole(s string) (UserRole, error) {
	switch UserRole(s) {
	case UserRoleAdmin, UserRoleOwner, UserRoleManager, UserRoleSalesman:
		return UserRole(s), nil
	}
	return "", errors.New("invalid user role")
}

type TransferDirection string

const (
	TransferShopToWarehouse TransferDirection = "SW"
	TransferWarehouseToShop TransferDirection = "WS"
)

func ParseTransferDirection(s string) (TransferDirection, error) {
	switch TransferDirection(s) {
	case TransferShopToWarehouse, TransferWarehouseToShop:
		return TransferDirection(s), nil
	}
	return "", errors.New("invalid transfer direction")
}
