package service

import (
	"context"
	"strings"

	"publicfeed/internal/cache"
	"publicfeed/internal/models"
	"publicfeed/internal/observability"
	"publicfeed/internal/repository"
)

// PostService provides post, reaction and comment business logic.
type PostService struct {
	postRepo repository.PostRepository
}

// CreatePostInput is the payload for creating a post.
type CreatePostInput struct {
	UserID   uint
	Content  string
	ImageURL string
}

// UpdatePostInput is the payload for editing a post. Content and ImageURL
// follow provided-wins semantics: nil means leave unchanged.
type UpdatePostInput struct {
	UserID   uint
	PostID   uint
	Content  *string
	ImageURL *string
}

// FeedPage is one page of the global feed plus pagination flags.
type FeedPage struct {
	Posts       []*models.Post `json:"posts"`
	TotalPosts  int64          `json:"totalPosts"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	HasNextPage bool           `json:"hasNextPage"`
	HasPrevPage bool           `json:"hasPrevPage"`
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func validatePostContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Post text is required")
	}
	if len(content) > models.MaxPostContentLen {
		return "", models.NewValidationError("Post text too long (max 2000 characters)")
	}
	return content, nil
}

// CreatePost validates and persists a post, returning it hydrated.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content, err := validatePostContent(in.Content)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Content:  content,
		ImageURL: in.ImageURL,
		UserID:   in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// GetPost returns a single hydrated post from the viewer's perspective.
func (s *PostService) GetPost(ctx context.Context, postID, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID, currentUserID)
}

// ToggleReaction applies a like or dislike toggle and returns the hydrated
// post. Reacting with the kind already held removes it; reacting with the
// opposite kind switches sides in one statement.
func (s *PostService) ToggleReaction(ctx context.Context, postID, userID uint, kind models.ReactionKind) (*models.Post, error) {
	// Existence check first so a reaction on a deleted post is a 404, not a
	// silently dangling row.
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}

	added, err := s.postRepo.ToggleReaction(ctx, userID, postID, kind)
	if err != nil {
		return nil, err
	}

	result := "removed"
	if added {
		result = "added"
	}
	observability.ReactionToggles.WithLabelValues(string(kind), result).Inc()

	return s.postRepo.GetByID(ctx, postID, userID)
}

// AddComment appends a comment and returns the hydrated post.
func (s *PostService) AddComment(ctx context.Context, postID, userID uint, content string) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Comment text is required")
	}

	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}
	if err := s.postRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, userID)
}

// UpdatePost edits a post's content and/or image. Only the owner may edit.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if in.Content != nil {
		content, err := validatePostContent(*in.Content)
		if err != nil {
			return nil, err
		}
		post.Content = content
	}
	if in.ImageURL != nil {
		post.ImageURL = *in.ImageURL
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, in.PostID, in.UserID)
}

// DeletePost removes a post with its comments and reactions. Only the owner
// may delete.
func (s *PostService) DeletePost(ctx context.Context, postID, userID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	return s.postRepo.Delete(ctx, postID)
}

// GetFeed returns one reverse-chronological page of all posts. The anonymous
// first page is served cache-aside with a short TTL; viewer-relative pages
// carry per-user reaction flags and always hit the database.
func (s *PostService) GetFeed(ctx context.Context, page, limit int, currentUserID uint) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	build := func() (*FeedPage, error) {
		posts, total, err := s.postRepo.List(ctx, limit, offset, currentUserID)
		if err != nil {
			return nil, err
		}
		return &FeedPage{
			Posts:       posts,
			TotalPosts:  total,
			Page:        page,
			Limit:       limit,
			HasNextPage: int64(page*limit) < total,
			HasPrevPage: page > 1,
		}, nil
	}

	if currentUserID == 0 && page == 1 && limit == DefaultFeedLimit {
		var cached FeedPage
		err := cache.Aside(ctx, cache.FeedFirstPageKey, &cached, cache.FeedTTL, func() error {
			fresh, err := build()
			if err != nil {
				return err
			}
			cached = *fresh
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &cached, nil
	}

	return build()
}

// DefaultFeedLimit is the page size when the client does not ask for one.
const DefaultFeedLimit = 10

// GetUserPosts returns a user's posts, newest first.
func (s *PostService) GetUserPosts(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.postRepo.GetByUserID(ctx, userID, limit, offset, currentUserID)
}
