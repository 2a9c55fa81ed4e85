package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string       `json:"name" gorm:"not null"`
	Email        string       `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string       `json:"-"`
	Role         Role         `json:"role" gorm:"type:varchar(16);not null;default:'student'"`
	MicrosoftID  string       `json:"-" gorm:"index"`
	AuthProvider AuthProvider `json:"auth_provider" gorm:"type:varchar(16);not null;default:'local'"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HashPassword hashes the user's password
func (u *User) HashPassword(password string) error {
	passwordInBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(passwordInBytes)
	return nil
}

// CheckPassword checks if the provided password matches the user's password
func (u *User) CheckPassword(providedPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(providedPassword))
}
