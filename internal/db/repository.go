package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/steemit/bookmarks/internal/models"
)

// ErrAnonymousUser is returned when a bookmark row is requested for user 0
var ErrAnonymousUser = errors.New("bookmark rows require a positive user id")

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// BookmarkRepository is the association store of (user, post) pairs
type BookmarkRepository struct {
	*Repository
}

// NewBookmarkRepository creates a new bookmark repository
func NewBookmarkRepository(repo *Repository) *BookmarkRepository {
	return &BookmarkRepository{Repository: repo}
}

// Exists reports whether the user has bookmarked the post
func (r *BookmarkRepository) Exists(ctx context.Context, userID, postID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Add inserts the pair unless it already exists. It returns true when a new
// row was written.
func (r *BookmarkRepository) Add(ctx context.Context, userID, postID int64) (bool, error) {
	if userID <= 0 {
		return false, ErrAnonymousUser
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Bookmark{UserID: userID, PostID: postID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Remove deletes every row for the pair and returns how many went away
func (r *BookmarkRepository) Remove(ctx context.Context, userID, postID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Bookmark{})
	return res.RowsAffected, res.Error
}

// CountForPost returns the number of users who bookmarked the post
func (r *BookmarkRepository) CountForPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

// ListForUser returns the post ids bookmarked by the user, oldest first
func (r *BookmarkRepository) ListForUser(ctx context.Context, userID int64) ([]int64, error) {
	postIDs := []int64{}
	err := r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("post_id", &postIDs).Error
	if err != nil {
		return nil, err
	}
	return postIDs, nil
}

// lookupBatchSize bounds the bind parameters of a single IN query
const lookupBatchSize = 500

// PostRepository reads the host's content table
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetPublishedByIDs retrieves published posts by id. Missing, draft and
// private posts are left out; callers must not assume positional alignment.
func (r *PostRepository) GetPublishedByIDs(ctx context.Context, ids []int64) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(ids))
	for start := 0; start < len(ids); start += lookupBatchSize {
		end := min(start+lookupBatchSize, len(ids))
		batch := []*models.Post{}
		err := r.db.WithContext(ctx).
			Where("id IN ? AND post_status = ?", ids[start:end], models.PostStatusPublish).
			Find(&batch).Error
		if err != nil {
			return nil, err
		}
		posts = append(posts, batch...)
	}
	return posts, nil
}

// GetBySlug retrieves a post of the given type by slug
func (r *PostRepository) GetBySlug(ctx context.Context, slug, postType string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Where("post_name = ? AND post_type = ?", slug, postType).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// EnsureListPage creates the published page that hosts the bookmark list
// when no page with that slug exists yet. It returns true when a page was
// created.
func (r *PostRepository) EnsureListPage(ctx context.Context, slug, title string) (bool, error) {
	existing, err := r.GetBySlug(ctx, slug, models.PostTypePage)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	page := &models.Post{
		Title:   title,
		Slug:    slug,
		Content: models.ListShortcode,
		Status:  models.PostStatusPublish,
		Type:    models.PostTypePage,
	}
	if err := r.db.WithContext(ctx).Create(page).Error; err != nil {
		return false, err
	}
	return true, nil
}
