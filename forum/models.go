package forum

import "time"

// Post is a community forum entry, optionally linking a shared library
// project.
type Post struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Title             string    `gorm:"size:255;not null" json:"title"`
	Content           string    `gorm:"type:text" json:"content"`
	Author            string    `gorm:"size:100" json:"author"`
	Likes             int64     `gorm:"not null;default:0" json:"likes"`
	AttachedProjectID *string   `gorm:"size:36" json:"attached_project_id,omitempty"`
	Comments          []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

func (Post) TableName() string {
	return "forum_posts"
}

// Comment is one reply on a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;not null;index" json:"post_id"`
	Content   string    `gorm:"type:text" json:"content"`
	Author    string    `gorm:"size:100" json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "forum_comments"
}
