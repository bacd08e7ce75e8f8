package http

import (
	"errors"
	"net/http"

	"tutorial-blog/pkg/logger"
	"tutorial-blog/pkg/metrics"
	"tutorial-blog/pkg/middleware"
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/usecase"

	"github.com/gin-gonic/gin"
)

// PostAPIHandler serves the JSON post endpoints under /api/v1.
type PostAPIHandler struct {
	postUseCase usecase.PostUseCase
	logger      *logger.Logger
}

func NewPostAPIHandler(postUseCase usecase.PostUseCase, logger *logger.Logger) *PostAPIHandler {
	return &PostAPIHandler{
		postUseCase: postUseCase,
		logger:      logger,
	}
}

type PostListResponse struct {
	Posts []*entity.Post `json:"posts"`
	Count int            `json:"count"`
}

type ValidationErrorResponse struct {
	Errors usecase.FieldErrors `json:"errors"`
}

// ListPosts godoc
// @Summary      List posts
// @Description  Get every post in creation order
// @Tags         posts
// @Produce      json
// @Success      200  {object}  PostListResponse
// @Failure      500  {object}  map[string]string
// @Router       /posts [get]
func (h *PostAPIHandler) ListPosts(c *gin.Context) {
	posts, err := h.postUseCase.ListPosts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list posts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	if posts == nil {
		posts = []*entity.Post{}
	}

	c.JSON(http.StatusOK, PostListResponse{Posts: posts, Count: len(posts)})
}

// GetPost godoc
// @Summary      Get post by ID
// @Tags         posts
// @Produce      json
// @Param        id path int true "Post ID"
// @Success      200  {object}  entity.Post
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /posts/{id} [get]
func (h *PostAPIHandler) GetPost(c *gin.Context) {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	post, err := h.postUseCase.GetPost(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		h.logger.Error("Failed to get post %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// CreatePost godoc
// @Summary      Create a new post
// @Description  Create a post authored by the current user. Any author in the body is ignored.
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body usecase.PostForm true "Post data"
// @Success      201  {object}  entity.Post
// @Failure      400  {object}  ValidationErrorResponse
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /posts [post]
func (h *PostAPIHandler) CreatePost(c *gin.Context) {
	identity, ok := middleware.CurrentUser(c)
	if !ok {
		metrics.UnauthorizedPostAttempts.Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not authorized for adding post"})
		return
	}

	var form usecase.PostForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	post, err := h.postUseCase.CreatePost(c.Request.Context(), identity.UserID, form)
	if err != nil {
		var fieldErrs usecase.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: fieldErrs})
		case errors.Is(err, entity.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "You are not authorized for adding post"})
		default:
			h.logger.Error("Failed to create post: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		}
		return
	}

	c.JSON(http.StatusCreated, post)
}
