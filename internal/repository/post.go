package repository

import (
	"context"
	"errors"
	"time"

	"publicfeed/internal/cache"
	"publicfeed/internal/models"
	"publicfeed/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error)
	// List returns one feed page (newest first, id as tiebreak) plus the
	// total post count for pagination flags.
	List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	// Delete hard-deletes the post with its comments and reactions.
	Delete(ctx context.Context, id uint) error
	// ToggleReaction atomically applies a like/dislike toggle. It returns
	// true when the user now holds the given reaction, false when the call
	// removed it.
	ToggleReaction(ctx context.Context, userID, postID uint, kind models.ReactionKind) (bool, error)
	AddComment(ctx context.Context, comment *models.Comment) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.ObserveQuery("create", "posts", time.Now())
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewStorageUnavailableError(err)
	}
	cache.InvalidateFeed(ctx)
	return nil
}

// applyPostDetails adds subqueries to fetch counts and the viewer's reaction
// state in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM reactions WHERE reactions.post_id = posts.id AND reactions.kind = 'like') AS likes_count, " +
		"(SELECT COUNT(*) FROM reactions WHERE reactions.post_id = posts.id AND reactions.kind = 'dislike') AS dislikes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+
			", EXISTS(SELECT 1 FROM reactions WHERE reactions.post_id = posts.id AND reactions.user_id = ? AND reactions.kind = 'like') AS liked"+
			", EXISTS(SELECT 1 FROM reactions WHERE reactions.post_id = posts.id AND reactions.user_id = ? AND reactions.kind = 'dislike') AS disliked",
			currentUserID, currentUserID)
	}

	return db.Select(selectQuery + ", false AS liked, false AS disliked")
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	defer observability.ObserveQuery("read", "posts", time.Now())

	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments.User").
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewStorageUnavailableError(err)
	}

	if err := r.loadReactionSets(ctx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// loadReactionSets fills LikerIDs/DislikerIDs for single-post responses,
// ordered by reaction time so the sets are stable across reads.
func (r *postRepository) loadReactionSets(ctx context.Context, post *models.Post) error {
	var reactions []models.Reaction
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", post.ID).
		Order("created_at ASC, id ASC").
		Find(&reactions).Error; err != nil {
		return models.NewStorageUnavailableError(err)
	}

	post.LikerIDs = make([]uint, 0, len(reactions))
	post.DislikerIDs = make([]uint, 0)
	for _, reaction := range reactions {
		if reaction.Kind == models.ReactionLike {
			post.LikerIDs = append(post.LikerIDs, reaction.UserID)
		} else {
			post.DislikerIDs = append(post.DislikerIDs, reaction.UserID)
		}
	}
	return nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	defer observability.ObserveQuery("list", "posts", time.Now())

	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewStorageUnavailableError(err)
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, int64, error) {
	defer observability.ObserveQuery("list", "posts", time.Now())

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewStorageUnavailableError(err)
	}

	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewStorageUnavailableError(err)
	}
	return posts, total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.ObserveQuery("update", "posts", time.Now())

	err := r.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).
		Updates(map[string]interface{}{
			"content":   post.Content,
			"image_url": post.ImageURL,
		}).Error
	if err != nil {
		return models.NewStorageUnavailableError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	cache.InvalidateFeed(ctx)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer observability.ObserveQuery("delete", "posts", time.Now())

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.NewStorageUnavailableError(err)
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidateFeed(ctx)
	return nil
}

func (r *postRepository) ToggleReaction(ctx context.Context, userID, postID uint, kind models.ReactionKind) (bool, error) {
	defer observability.ObserveQuery("toggle", "reactions", time.Now())

	// Removing an existing same-kind reaction is the un-toggle case.
	res := r.db.WithContext(ctx).Exec(
		`DELETE FROM reactions WHERE user_id = ? AND post_id = ? AND kind = ?`,
		userID, postID, string(kind),
	)
	if res.Error != nil {
		return false, models.NewStorageUnavailableError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidatePost(ctx, postID)
		return false, nil
	}

	// Otherwise upsert: the unique (user_id, post_id) row flips any opposite
	// reaction in the same statement, so a user can never hold both.
	res = r.db.WithContext(ctx).Exec(
		`INSERT INTO reactions (user_id, post_id, kind, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, post_id)
		 DO UPDATE SET kind = excluded.kind, created_at = excluded.created_at`,
		userID, postID, string(kind), time.Now().UTC(),
	)
	if res.Error != nil {
		return false, models.NewStorageUnavailableError(res.Error)
	}
	cache.InvalidatePost(ctx, postID)
	return true, nil
}

func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	defer observability.ObserveQuery("create", "comments", time.Now())

	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewStorageUnavailableError(err)
	}
	cache.InvalidatePost(ctx, comment.PostID)
	return nil
}
