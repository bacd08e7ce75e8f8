package usecase

import (
	"context"
	"errors"
	"fmt"

	"tutorial-blog/pkg/logger"
	"tutorial-blog/pkg/metrics"
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/repo/persistent"
)

type PostUseCase interface {
	ListPosts(ctx context.Context) ([]*entity.Post, error)
	GetPost(ctx context.Context, id uint) (*entity.Post, error)
	CreatePost(ctx context.Context, authorID string, form PostForm) (*entity.Post, error)
}

type postUseCase struct {
	postRepo persistent.PostRepository
	userRepo persistent.UserRepository
	logger   *logger.Logger
}

func NewPostUseCase(postRepo persistent.PostRepository, userRepo persistent.UserRepository, logger *logger.Logger) PostUseCase {
	return &postUseCase{
		postRepo: postRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (uc *postUseCase) ListPosts(ctx context.Context) ([]*entity.Post, error) {
	posts, err := uc.postRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (uc *postUseCase) GetPost(ctx context.Context, id uint) (*entity.Post, error) {
	post, err := uc.postRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return post, nil
}

// CreatePost stores a post written by authorID. An empty authorID, or one that
// no longer names an active user, is rejected with ErrUnauthorized before the
// form is looked at; an invalid form yields FieldErrors.
func (uc *postUseCase) CreatePost(ctx context.Context, authorID string, form PostForm) (*entity.Post, error) {
	if err := uc.checkAuthor(ctx, authorID); err != nil {
		return nil, err
	}

	valid, err := ValidatePostForm(form)
	if err != nil {
		var fieldErrs FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, field := range fieldErrs.Fields() {
				metrics.PostValidationFailures.WithLabelValues(field).Inc()
			}
		}
		return nil, err
	}

	post := &entity.Post{
		Title:    valid.Title,
		Text:     valid.Text,
		AuthorID: authorID,
	}
	if err := uc.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	metrics.PostsCreated.Inc()
	uc.logger.Info("Post %d created by %s", post.ID, authorID)
	return post, nil
}

func (uc *postUseCase) checkAuthor(ctx context.Context, authorID string) error {
	if authorID == "" {
		metrics.UnauthorizedPostAttempts.Inc()
		return entity.ErrUnauthorized
	}

	author, err := uc.userRepo.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			uc.logger.Warn("Post submitted for unknown user %s", authorID)
			metrics.UnauthorizedPostAttempts.Inc()
			return entity.ErrUnauthorized
		}
		return fmt.Errorf("failed to load author %s: %w", authorID, err)
	}
	if !author.IsActive {
		metrics.UnauthorizedPostAttempts.Inc()
		return entity.ErrUnauthorized
	}
	return nil
}
