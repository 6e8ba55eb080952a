package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/steemit/bookmarks/internal/bookmark"
	"github.com/steemit/bookmarks/internal/models"
	"github.com/steemit/bookmarks/internal/render"
	"github.com/steemit/bookmarks/pkg/telemetry"
)

// toggleBookmark flips the bookmark of post_id for the current viewer
func (r *Router) toggleBookmark(c *gin.Context) error {
	postID, err := r.service.ParsePostID(c.PostForm("post_id"))
	if err != nil {
		return err
	}

	viewer := currentViewer(c)
	res, err := r.service.Toggle(c.Request.Context(), viewer, postID)
	if err != nil {
		return err
	}

	if !viewer.Authenticated() {
		r.setAnonCookie(c, res.Token)
	}
	c.String(http.StatusOK, res.Action())
	return nil
}

// refreshBookmarksList re-renders the list fragment. It is read-only and
// therefore not nonce protected.
func (r *Router) refreshBookmarksList(c *gin.Context) error {
	view, err := r.listView(c.Request.Context(), currentViewer(c))
	if err != nil {
		return err
	}
	c.HTML(http.StatusOK, render.ListTemplate, view)
	return nil
}

// refreshBookmarkCount returns the plain count for the admin meta box
func (r *Router) refreshBookmarkCount(c *gin.Context) error {
	if !r.sessions.IsAdmin(currentIdentity(c)) {
		return bookmark.ErrForbidden
	}

	postID, err := r.service.ParsePostID(c.PostForm("post_id"))
	if err != nil {
		return err
	}

	count, err := r.service.Count(c.Request.Context(), postID)
	if err != nil {
		return err
	}
	c.String(http.StatusOK, strconv.FormatInt(count, 10))
	return nil
}

// nonceHandler hands out the ajax endpoint and nonce for the viewer's
// session
func (r *Router) nonceHandler(c *gin.Context) {
	identity := currentIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"ajax_url": "/ajax",
		"nonce":    r.nonces.Create(NonceAction, identity.NonceSession()),
	})
}

// listHandler renders the list container shown on the bookmarks page
func (r *Router) listHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "api.bookmarks_list")
	defer span.End()

	view, err := r.listView(ctx, currentViewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, render.ContainerTemplate, r.renderer.Container(view))
}

// buttonHandler renders the toggle button shown under a post
func (r *Router) buttonHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "api.bookmark_button")
	defer span.End()

	post, ok := r.embeddablePost(ctx, c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("post_id", post.ID))

	bookmarked, err := r.service.IsBookmarked(ctx, currentViewer(c), post.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, render.ButtonTemplate, r.renderer.Button(post.ID, bookmarked))
}

// metaBoxHandler renders the admin count box
func (r *Router) metaBoxHandler(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "api.bookmark_count")
	defer span.End()

	if !r.sessions.IsAdmin(currentIdentity(c)) {
		respondError(c, bookmark.ErrForbidden)
		return
	}

	post, ok := r.embeddablePost(ctx, c)
	if !ok {
		return
	}

	count, err := r.service.Count(ctx, post.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.HTML(http.StatusOK, render.MetaBoxTemplate, r.renderer.MetaBox(count))
}

// embeddablePost resolves the :id route parameter. It writes the response
// and returns false when there is nothing to render: the id is invalid, the
// post is unknown or the post is the bookmark list page itself.
func (r *Router) embeddablePost(ctx context.Context, c *gin.Context) (*models.Post, bool) {
	postID, err := r.service.ParsePostID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	post, err := r.posts.GetByID(ctx, postID)
	if err != nil {
		respondError(c, fmt.Errorf("load post: %w: %w", bookmark.ErrStorage, err))
		return nil, false
	}
	if post == nil {
		respondError(c, NewError(http.StatusNotFound, "post not found"))
		return nil, false
	}
	if post.IsBookmarkListPage() {
		c.Status(http.StatusNoContent)
		return nil, false
	}
	return post, true
}

func (r *Router) listView(ctx context.Context, viewer bookmark.Viewer) (render.ListView, error) {
	ids, err := r.service.List(ctx, viewer)
	if err != nil {
		return render.ListView{}, err
	}
	if len(ids) == 0 {
		return r.renderer.List(nil, nil), nil
	}

	posts, err := r.posts.GetPublishedByIDs(ctx, ids)
	if err != nil {
		return render.ListView{}, fmt.Errorf("load posts: %w: %w", bookmark.ErrStorage, err)
	}
	return r.renderer.List(ids, posts), nil
}

func (r *Router) setAnonCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		r.anon.CookieName,
		token,
		int(r.anon.TTL.Seconds()),
		r.anon.CookiePath,
		r.anon.CookieDomain,
		r.anon.Secure,
		true,
	)
}
