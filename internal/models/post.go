package models

import "time"

// Post ordering used by every feed.
const PostOrder = "pub_date desc, id desc"

type Post struct {
	ID       int       `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index;<-:create" json:"pub_date"`
	Image    string    `json:"image,omitempty"`
	AuthorID int       `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID" json:"author"`
	GroupID  *int      `gorm:"index" json:"group_id"`
	Group    *Group    `gorm:"foreignKey:GroupID" json:"group,omitempty"`

	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// PostForm is bound from the create and edit pages. The optional image
// upload is read separately from the multipart body.
type PostForm struct {
	Text  string `form:"text" binding:"required"`
	Group string `form:"group" binding:"omitempty,numeric"`
}
