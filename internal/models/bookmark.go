package models

// Bookmark is one (user, post) association. Anonymous visitors never get a
// row; their bookmarks live in a signed cookie.
//
// The table name comes from the naming strategy so that it picks up the host
// table prefix (wp_bookmarks on a default install).
type Bookmark struct {
	ID     int64 `gorm:"primaryKey;autoIncrement;column:id"`
	UserID int64 `gorm:"not null;uniqueIndex:idx_bookmarks_user_post,priority:1;column:user_id"`
	PostID int64 `gorm:"not null;uniqueIndex:idx_bookmarks_user_post,priority:2;index:idx_bookmarks_post;column:post_id"`
}
