package models

import "time"

type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email    string `gorm:"size:254" json:"-"`
	Password string `gorm:"not null" json:"-"` // bcrypt hash

	Posts []Post `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// SignupForm is bound from the registration page.
type SignupForm struct {
	Username string `form:"username" binding:"required,max=150"`
	Email    string `form:"email" binding:"omitempty,email"`
	Password string `form:"password" binding:"required,min=6"`
}

// LoginForm is bound from the login page.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}
