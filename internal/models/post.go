package models

import "strings"

// ListShortcode marks the page that renders the visitor's bookmark list.
const ListShortcode = "[bookmarks_list]"

// Post status and type values used by the host content table
const (
	PostStatusPublish = "publish"
	PostTypePost      = "post"
	PostTypePage      = "page"
)

// Post is the read model of the host's content table. Only the columns the
// bookmark screens need are mapped.
type Post struct {
	ID      int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Title   string `gorm:"type:text;not null;default:'';column:post_title"`
	Slug    string `gorm:"type:varchar(200);not null;default:'';index;column:post_name"`
	Content string `gorm:"type:text;not null;default:'';column:post_content"`
	Status  string `gorm:"type:varchar(20);not null;default:'publish';column:post_status"`
	Type    string `gorm:"type:varchar(20);not null;default:'post';column:post_type"`
}

// IsBookmarkListPage reports whether the post embeds the bookmark list.
// Such pages get neither the bookmark button nor the count meta box.
func (p *Post) IsBookmarkListPage() bool {
	return strings.Contains(p.Content, ListShortcode)
}
