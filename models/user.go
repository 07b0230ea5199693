package models

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/saif43/inventory-app-api/config"
	"github.com/saif43/inventory-app-api/utils"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Username    string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name        string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email       *string   `gorm:"size:100;unique" json:"email"`
	Password    string    `gorm:"size:255;not null" json:"password"`
	Role        UserRole  `gorm:"type:enum('A','O','M','S');default:'S'" json:"role"`
	CreatedById int       `gorm:"index;default:0" json:"created_by_id"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required,min=5"`
	Role     string `json:"role"`
}

type LoginInfo struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ShopId   string `json:"shop_id"`
	ShopName string `json:"shop_name"`
}

func (result *User) PrepareGive() {
	result.Password = ""
}

// RegisterUser creates a standalone owner account. Staff accounts go through
// CreateStaff so the creator back-reference is recorded.
func RegisterUser(ctx context.Context, input *NewUser) (*User, error) {

	db := config.GetDB()
	var count int64

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}

	err := db.WithContext(ctx).Model(&User{}).Where("username = ?", input.Username).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate username")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Username: html.EscapeString(strings.TrimSpace(input.Username)),
		Name:     input.Name,
		Email:    utils.NilIfEmpty(strings.ToLower(input.Email)),
		Password: string(hashedPassword),
		Role:     UserRoleOwner,
		IsActive: utils.NewTrue(),
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	user.PrepareGive()
	return &user, nil
}

// CreateStaff lets a shop owner add a manager or salesman account. The new
// account's creator back-reference is what scopes it to the owner's shop.
func CreateStaff(ctx context.Context, input *NewUser) (*User, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrorNotAllowed
	}
	owner, err := GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if owner.Role != UserRoleOwner {
		return nil, utils.ErrorNotAllowed
	}

	role, err := ParseUserRole(input.Role)
	if err != nil || (role != UserRoleManager && role != UserRoleSalesman) {
		return nil, errors.New("staff role must be manager or salesman")
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate username")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	staff := User{
		Username:    html.EscapeString(strings.TrimSpace(input.Username)),
		Name:        input.Name,
		Email:       utils.NilIfEmpty(strings.ToLower(input.Email)),
		Password:    string(hashedPassword),
		Role:        role,
		CreatedById: owner.ID,
		IsActive:    utils.NewTrue(),
	}

	if err := db.WithContext(ctx).Create(&staff).Error; err != nil {
		return nil, err
	}
	staff.PrepareGive()
	return &staff, nil
}

func Login(ctx context.Context, username string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, errors.New("invalid username or password")
	}

	if err := utils.ComparePassword(user.Password, password); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, errors.New("invalid username or password")
		}
		return nil, err
	}

	if user.IsActive != nil && !*user.IsActive {
		return nil, errors.New("user is disabled")
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	result := LoginInfo{
		Token: token,
		Name:  user.Name,
		Role:  string(user.Role),
	}

	// attach the acting shop, if one resolves
	userCtx := utils.SetUserIdInContext(ctx, user.ID)
	if shop, err := ResolveActingShop(userCtx); err == nil {
		result.ShopId = shop.ID.String()
		result.ShopName = shop.Name
	}

	// store token in redis so logout can revoke it before jwt expiry
	if err := config.AddRedisSet("Tokens:"+user.Username, token); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, user.Username, utils.TokenLifespan()); err != nil {
		return nil, err
	}

	return &result, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + token); err != nil {
		return false, err
	}
	// remove current token from the user's tokens list
	username, ok := utils.GetUsernameFromContext(ctx)
	if ok && username != "" {
		if err := config.RemoveRedisSetMember("Tokens:"+username, token); err != nil {
			return false, err
		}
	}
	return true, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {

	db := config.GetDB()
	var result User

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	result.PrepareGive()
	return &result, nil
}

// GetMe returns the authenticated user's profile.
func GetMe(ctx context.Context) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrorNotAllowed
	}
	return GetUser(ctx, userId)
}

// ListStaff returns manager/salesman accounts created by the acting owner,
// optionally filtered by role.
func ListStaff(ctx context.Context, role *UserRole) ([]*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrorNotAllowed
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("created_by_id = ?", userId)
	if role != nil {
		dbCtx = dbCtx.Where("role = ?", *role)
	}

	var results []*User
	if err := dbCtx.Order("username").Find(&results).Error; err != nil {
		return nil, err
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

// GetAllUsers is admin only.
func GetAllUsers(ctx context.Context) ([]*User, error) {
	isAdmin, _ := utils.GetIsAdminFromContext(ctx)
	if !isAdmin {
		return nil, utils.ErrorNotAllowed
	}

	db := config.GetDB()
	var results []*User
	if err := db.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, err
	}
	for _, u := range results {
		u.PrepareGive()
	}
	return results, nil
}

// ToggleActiveUser disables or re-enables a staff account created by the
// acting owner.
func ToggleActiveUser(ctx context.Context, id int, isActive bool) (*User, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrorNotAllowed
	}

	db := config.GetDB()
	var staff User
	if err := db.WithContext(ctx).Where("created_by_id = ?", userId).First(&staff, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	if err := db.WithContext(ctx).Model(&staff).Update("IsActive", isActive).Error; err != nil {
		return nil, err
	}

	// a disabled account must not keep working through an old login
	if !isActive {
		if err := revokeUserSessions(staff.Username); err != nil {
			return nil, err
		}
	}

	staff.PrepareGive()
	return &staff, nil
}

// revokeUserSessions drops every live session token of a user.
func revokeUserSessions(username string) error {
	tokens, err := config.GetRedisSetMembers("Tokens:" + username)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, "Token:"+token)
	}
	keys = append(keys, "Tokens:"+username)
	return config.RemoveRedisKey(keys...)
}
