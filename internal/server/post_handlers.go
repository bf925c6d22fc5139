package server

import (
	"mime/multipart"

	"publicfeed/internal/models"
	"publicfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// uploadPostImage streams a multipart image to the media host.
func (s *Server) uploadPostImage(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	if s.uploader == nil {
		return "", models.NewValidationError("Image uploads are not configured")
	}
	f, err := file.Open()
	if err != nil {
		return "", models.NewValidationError("Could not read image upload")
	}
	defer f.Close()

	url, err := s.uploader.UploadPostImage(c.Context(), f)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return url, nil
}

// CreatePost handles POST /api/posts. The body is a multipart form with a
// required "text" field and an optional "image" file.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	text := c.FormValue("text")

	imageURL := ""
	if file, err := c.FormFile("image"); err == nil && file != nil {
		url, upErr := s.uploadPostImage(c, file)
		if upErr != nil {
			return models.RespondWithAppError(c, upErr)
		}
		imageURL = url
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:   userID,
		Content:  text,
		ImageURL: imageURL,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// GetFeed handles GET /api/posts/feed with page/limit query parameters.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", service.DefaultFeedLimit)
	if limit <= 0 {
		limit = service.DefaultFeedLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	feed, err := s.postService.GetFeed(c.Context(), page, limit, s.optionalUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(feed)
}

// GetMyPosts handles GET /api/posts/user
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := currentUserID(c)
	p := parsePagination(c, 20)

	posts, err := s.postService.GetUserPosts(c.Context(), userID, p.Limit, p.Offset, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// GetUserPosts handles GET /api/posts/user/:userId
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, err := s.postService.GetUserPosts(c.Context(), userID, p.Limit, p.Offset, s.optionalUserID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// LikePost handles PATCH /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.ReactionLike)
}

// DislikePost handles PATCH /api/posts/:id/dislike
func (s *Server) DislikePost(c *fiber.Ctx) error {
	return s.toggleReaction(c, models.ReactionDislike)
}

func (s *Server) toggleReaction(c *fiber.Ctx, kind models.ReactionKind) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.ToggleReaction(c.Context(), postID, currentUserID(c), kind)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.AddComment(c.Context(), postID, currentUserID(c), req.Text)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// UpdatePost handles PATCH /api/posts/:id. Multipart like CreatePost; absent
// fields are left unchanged.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	in := service.UpdatePostInput{
		UserID: currentUserID(c),
		PostID: postID,
	}

	form, formErr := c.MultipartForm()
	if formErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid multipart form"))
	}
	if values, ok := form.Value["text"]; ok && len(values) > 0 {
		in.Content = &values[0]
	}
	if files, ok := form.File["image"]; ok && len(files) > 0 {
		url, upErr := s.uploadPostImage(c, files[0])
		if upErr != nil {
			return models.RespondWithAppError(c, upErr)
		}
		in.ImageURL = &url
	}

	post, err := s.postService.UpdatePost(c.Context(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), postID, currentUserID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}
