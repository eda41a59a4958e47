// internal/models/user.go
package models

import (
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username     string `json:"username" gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string `json:"-" gorm:"size:255;not null"`
	IsCreator    bool   `json:"is_creator" gorm:"default:false"`
	IsAdvertiser bool   `json:"is_advertiser" gorm:"default:false"`
	IsAttester   bool   `json:"is_attester" gorm:"default:false"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) Roles() RoleSet {
	return RoleSet{
		IsCreator:    u.IsCreator,
		IsAdvertiser: u.IsAdvertiser,
		IsAttester:   u.IsAttester,
	}
}
