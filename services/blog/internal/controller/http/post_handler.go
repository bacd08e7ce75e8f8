package http

import (
	"errors"
	"fmt"
	"net/http"

	"tutorial-blog/pkg/logger"
	"tutorial-blog/pkg/metrics"
	"tutorial-blog/pkg/middleware"
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/usecase"

	"github.com/gin-gonic/gin"
)

const notAuthorizedForPostHTML = "<h1>You are not authorized for adding post</h1>"

// PostHandler serves the HTML pages under /posts/.
type PostHandler struct {
	postUseCase usecase.PostUseCase
	logger      *logger.Logger
}

func NewPostHandler(postUseCase usecase.PostUseCase, logger *logger.Logger) *PostHandler {
	return &PostHandler{
		postUseCase: postUseCase,
		logger:      logger,
	}
}

func (h *PostHandler) ListPosts(c *gin.Context) {
	posts, err := h.postUseCase.ListPosts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list posts: %v", err)
		serverError(c)
		return
	}

	renderPage(c, http.StatusOK, "posts/all_posts.html", gin.H{
		"title": "All posts",
		"posts": posts,
	})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}

	post, err := h.postUseCase.GetPost(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			NotFound(c)
			return
		}
		h.logger.Error("Failed to get post %d: %v", id, err)
		serverError(c)
		return
	}

	renderPage(c, http.StatusOK, "posts/one_post.html", gin.H{
		"title": post.Title,
		"post":  post,
	})
}

func (h *PostHandler) NewPostForm(c *gin.Context) {
	h.renderForm(c, usecase.PostForm{}, usecase.FieldErrors{})
}

// CreatePost checks the session before it looks at the submitted form, so an
// anonymous caller always gets 401 and never sees validation errors.
func (h *PostHandler) CreatePost(c *gin.Context) {
	identity, ok := middleware.CurrentUser(c)
	if !ok {
		metrics.UnauthorizedPostAttempts.Inc()
		c.Data(http.StatusUnauthorized, "text/html; charset=utf-8", []byte(notAuthorizedForPostHTML))
		return
	}

	var form usecase.PostForm
	if err := c.ShouldBind(&form); err != nil {
		// an unreadable body counts as an empty submission
		h.logger.Warn("Failed to parse post form: %v", err)
		form = usecase.PostForm{}
	}

	post, err := h.postUseCase.CreatePost(c.Request.Context(), identity.UserID, form)
	if err != nil {
		var fieldErrs usecase.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			h.renderForm(c, form, fieldErrs)
		case errors.Is(err, entity.ErrUnauthorized):
			c.Data(http.StatusUnauthorized, "text/html; charset=utf-8", []byte(notAuthorizedForPostHTML))
		default:
			h.logger.Error("Failed to create post: %v", err)
			serverError(c)
		}
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/posts/%d/", post.ID))
}

func (h *PostHandler) renderForm(c *gin.Context, form usecase.PostForm, fieldErrs usecase.FieldErrors) {
	renderPage(c, http.StatusOK, "posts/add_new_post.html", gin.H{
		"title":  "Add post",
		"form":   form,
		"errors": fieldErrs,
	})
}
