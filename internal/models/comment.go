package models

import "time"

type Comment struct {
	ID       int       `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"autoCreateTime;index" json:"created"`
	PostID   int       `gorm:"not null;index" json:"post_id"`
	AuthorID int       `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
}

// CommentForm is bound from the comment box on the post page.
type CommentForm struct {
	Text string `form:"text" binding:"required"`
}
