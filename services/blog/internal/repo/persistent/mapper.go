package persistent

import (
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/model"
)

func ToPostEntity(m *model.PostModel) *entity.Post {
	if m == nil {
		return nil
	}

	post := &entity.Post{
		ID:        m.ID,
		Title:     m.Title,
		Text:      m.Text,
		AuthorID:  m.AuthorID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if m.Author.ID != "" {
		post.Author = &entity.Author{
			ID:       m.Author.ID,
			Username: m.Author.Username,
		}
	}

	return post
}

func ToPostModel(e *entity.Post) *model.PostModel {
	if e == nil {
		return nil
	}

	return &model.PostModel{
		ID:        e.ID,
		Title:     e.Title,
		Text:      e.Text,
		AuthorID:  e.AuthorID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func ToUserEntity(m *model.UserModel) *entity.User {
	if m == nil {
		return nil
	}

	user := &entity.User{
		ID:        m.ID,
		Username:  m.Username,
		Password:  m.Password,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Email != nil {
		user.Email = *m.Email
	}
	return user
}

// ToUserModel stores an empty email as NULL so the unique index only covers
// users that gave one.
func ToUserModel(e *entity.User) *model.UserModel {
	if e == nil {
		return nil
	}

	m := &model.UserModel{
		ID:        e.ID,
		Username:  e.Username,
		Password:  e.Password,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Email != "" {
		email := e.Email
		m.Email = &email
	}
	return m
}
