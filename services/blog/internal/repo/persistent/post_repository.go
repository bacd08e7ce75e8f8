package persistent

import (
	"context"
	"errors"

	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository interface {
	ListAll(ctx context.Context) ([]*entity.Post, error)
	GetByID(ctx context.Context, id uint) (*entity.Post, error)
	Create(ctx context.Context, post *entity.Post) error
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) ListAll(ctx context.Context) ([]*entity.Post, error) {
	var postModels []model.PostModel
	if err := r.db.WithContext(ctx).Preload("Author").Order("id ASC").Find(&postModels).Error; err != nil {
		return nil, err
	}

	posts := make([]*entity.Post, len(postModels))
	for i := range postModels {
		posts[i] = ToPostEntity(&postModels[i])
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*entity.Post, error) {
	var postModel model.PostModel
	if err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&postModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, err
	}
	return ToPostEntity(&postModel), nil
}

// Create inserts the post and fills in its generated id, timestamps and
// author. The author row is never written through the association.
func (r *postRepository) Create(ctx context.Context, post *entity.Post) error {
	postModel := ToPostModel(post)
	postModel.ID = 0

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(postModel).Error; err != nil {
		return err
	}

	created, err := r.GetByID(ctx, postModel.ID)
	if err != nil {
		return err
	}
	*post = *created
	return nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.PostModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
