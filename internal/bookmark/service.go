// Package bookmark implements the toggle, list and count operations for both
// logged-in users, whose bookmarks live in the association store, and
// anonymous visitors, whose bookmarks live in a client-held token.
package bookmark

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/steemit/bookmarks/internal/cache"
	"github.com/steemit/bookmarks/pkg/config"
	"github.com/steemit/bookmarks/pkg/logging"
	"github.com/steemit/bookmarks/pkg/telemetry"
)

// Repository is the association store the service writes to
type Repository interface {
	Exists(ctx context.Context, userID, postID int64) (bool, error)
	Add(ctx context.Context, userID, postID int64) (bool, error)
	Remove(ctx context.Context, userID, postID int64) (int64, error)
	CountForPost(ctx context.Context, postID int64) (int64, error)
	ListForUser(ctx context.Context, userID int64) ([]int64, error)
}

// Tracker holds anonymous bookmark sets
type Tracker interface {
	Decode(token string) []int64
	Contains(token string, postID int64) bool
	Toggle(token string, postID int64) (string, bool, error)
}

// Viewer is whoever is making the request. UserID 0 means anonymous, in
// which case AnonToken carries the visitor's bookmark set.
type Viewer struct {
	UserID    int64
	Role      string
	SessionID string
	AnonToken string
}

// Authenticated reports whether the viewer is a logged-in user
func (v Viewer) Authenticated() bool {
	return v.UserID > 0
}

func (v Viewer) kind() string {
	if v.Authenticated() {
		return "user"
	}
	return "anonymous"
}

// Result is the outcome of a toggle. Token is set for anonymous viewers and
// must be handed back to the client.
type Result struct {
	Added bool
	Token string
}

// Action is the wire name of the toggle outcome
func (r Result) Action() string {
	if r.Added {
		return "added"
	}
	return "removed"
}

// Options tune the service
type Options struct {
	CacheTTL            time.Duration
	InvalidateOnWrite   bool
	RejectInvalidPostID bool
}

// OptionsFromConfig reads the service options from configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CacheTTL:            cfg.Cache.TTL,
		InvalidateOnWrite:   cfg.Cache.InvalidateOnWrite,
		RejectInvalidPostID: cfg.Bookmarks.RejectInvalidPostID,
	}
}

// Service routes bookmark operations to the store or the tracker
type Service struct {
	repo    Repository
	tracker Tracker
	cache   cache.Store
	opts    Options
	toggles metric.Int64Counter
	logger  *zap.Logger
}

// NewService creates a bookmark service. A nil cache store disables caching.
func NewService(repo Repository, tracker Tracker, store cache.Store, opts Options) *Service {
	toggles, err := telemetry.Meter().Int64Counter("bookmarks.toggles",
		metric.WithDescription("Bookmark toggles by outcome and viewer kind"))
	if err != nil {
		logging.WithComponent("bookmark").Warn("Failed to create toggle counter", zap.Error(err))
	}
	return &Service{
		repo:    repo,
		tracker: tracker,
		cache:   store,
		opts:    opts,
		toggles: toggles,
		logger:  logging.WithComponent("bookmark"),
	}
}

// ParsePostID validates a request value according to the service options
func (s *Service) ParsePostID(raw string) (int64, error) {
	return ParsePostID(raw, s.opts.RejectInvalidPostID)
}

func (s *Service) checkPostID(postID int64) error {
	if s.opts.RejectInvalidPostID && postID <= 0 {
		return ErrInvalidPostID
	}
	return nil
}

// Toggle flips the bookmark state of postID for the viewer
func (s *Service) Toggle(ctx context.Context, viewer Viewer, postID int64) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "bookmark.toggle")
	defer span.End()

	if err := s.checkPostID(postID); err != nil {
		return Result{}, err
	}

	var (
		res Result
		err error
	)
	if viewer.Authenticated() {
		res, err = s.toggleStored(ctx, viewer.UserID, postID)
	} else {
		res, err = s.toggleAnonymous(viewer.AnonToken, postID)
	}
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("action", res.Action()),
		attribute.String("viewer", viewer.kind()),
	}
	span.SetAttributes(append(attrs, attribute.Int64("post_id", postID))...)
	if s.toggles != nil {
		s.toggles.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	s.logger.Debug("Bookmark toggled",
		zap.Int64("user_id", viewer.UserID),
		zap.Int64("post_id", postID),
		zap.String("action", res.Action()))
	return res, nil
}

// toggleStored adds the pair and falls back to removing it when the
// conditional insert found an existing row. Both steps are single statements,
// so concurrent toggles can never leave duplicate rows behind.
func (s *Service) toggleStored(ctx context.Context, userID, postID int64) (Result, error) {
	created, err := s.repo.Add(ctx, userID, postID)
	if err != nil {
		return Result{}, storageError("add bookmark", err)
	}
	if !created {
		if _, err := s.repo.Remove(ctx, userID, postID); err != nil {
			return Result{}, storageError("remove bookmark", err)
		}
	}

	if s.opts.InvalidateOnWrite {
		cache.Invalidate(ctx, s.cache,
			cache.CountKey(postID),
			cache.PairKey(userID, postID),
			cache.ListKey(userID))
	}
	return Result{Added: created}, nil
}

func (s *Service) toggleAnonymous(token string, postID int64) (Result, error) {
	next, added, err := s.tracker.Toggle(token, postID)
	if err != nil {
		return Result{}, fmt.Errorf("toggle anonymous bookmark: %w", err)
	}
	return Result{Added: added, Token: next}, nil
}

// IsBookmarked reports whether the viewer has bookmarked postID. For
// logged-in users the answer may be up to one cache TTL old.
func (s *Service) IsBookmarked(ctx context.Context, viewer Viewer, postID int64) (bool, error) {
	if !viewer.Authenticated() {
		return s.tracker.Contains(viewer.AnonToken, postID), nil
	}

	return cache.GetOrCompute(ctx, s.cache, cache.PairKey(viewer.UserID, postID), s.opts.CacheTTL,
		func(ctx context.Context) (bool, error) {
			ok, err := s.repo.Exists(ctx, viewer.UserID, postID)
			if err != nil {
				return false, storageError("check bookmark", err)
			}
			return ok, nil
		})
}

// List returns the post ids the viewer has bookmarked. Order is not part of
// the contract.
func (s *Service) List(ctx context.Context, viewer Viewer) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "bookmark.list")
	defer span.End()

	if !viewer.Authenticated() {
		return s.tracker.Decode(viewer.AnonToken), nil
	}

	return cache.GetOrCompute(ctx, s.cache, cache.ListKey(viewer.UserID), s.opts.CacheTTL,
		func(ctx context.Context) ([]int64, error) {
			ids, err := s.repo.ListForUser(ctx, viewer.UserID)
			if err != nil {
				return nil, storageError("list bookmarks", err)
			}
			return ids, nil
		})
}

// Count returns how many logged-in users bookmarked postID. Anonymous
// bookmarks are never counted.
func (s *Service) Count(ctx context.Context, postID int64) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "bookmark.count")
	defer span.End()

	if err := s.checkPostID(postID); err != nil {
		return 0, err
	}

	return cache.GetOrCompute(ctx, s.cache, cache.CountKey(postID), s.opts.CacheTTL,
		func(ctx context.Context) (int64, error) {
			n, err := s.repo.CountForPost(ctx, postID)
			if err != nil {
				return 0, storageError("count bookmarks", err)
			}
			return n, nil
		})
}
