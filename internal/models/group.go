package models

// Group is a topic community that posts may belong to.
type Group struct {
	ID          int    `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`

	Posts []Post `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"-"`
}

func (g Group) String() string {
	return g.Title
}
