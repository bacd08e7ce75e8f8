package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"tutorial-blog/pkg/cache"
	"tutorial-blog/pkg/config"
	"tutorial-blog/pkg/database"
	"tutorial-blog/pkg/jwt"
	"tutorial-blog/pkg/logger"
	"tutorial-blog/services/blog/internal/entity"
	"tutorial-blog/services/blog/internal/repo/persistent"
	"tutorial-blog/services/blog/internal/usecase"
)

type seedUser struct {
	username string
	email    string
	password string
	inactive bool
}

// dave keeps his posts but cannot log in or write new ones.
var testUsers = []seedUser{
	{"alice", "alice@test.com", "password123", false},
	{"bob", "bob@test.com", "password123", false},
	{"charlie", "charlie@test.com", "password123", false},
	{"dave", "dave@test.com", "password123", true},
}

func main() {
	postsPerUser := flag.Int("posts", 3, "posts to create for each demo user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}
	defer database.Close(db)

	if cfg.DBAutoMigrate {
		if err := persistent.AutoMigrate(db); err != nil {
			log.Error("Failed to migrate database: %v", err)
			panic(err)
		}
	}

	userRepo := persistent.NewUserRepository(db)
	postRepo := persistent.NewPostRepository(db)
	authUseCase := usecase.NewAuthUseCase(userRepo, jwt.NewService(cfg.JWTSecret), cache.NewTokenBlacklist(nil), log)
	postUseCase := usecase.NewPostUseCase(postRepo, userRepo, log)

	if err := seedDatabase(context.Background(), userRepo, postRepo, authUseCase, postUseCase, *postsPerUser, log); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

func seedDatabase(
	ctx context.Context,
	userRepo persistent.UserRepository,
	postRepo persistent.PostRepository,
	authUseCase usecase.AuthUseCase,
	postUseCase usecase.PostUseCase,
	postsPerUser int,
	log *logger.Logger,
) error {
	for _, u := range testUsers {
		user, _, err := authUseCase.Register(ctx, u.username, u.email, u.password)
		if errors.Is(err, entity.ErrUserExists) {
			log.Info("User %s already exists, skipping", u.username)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.username, err)
		}
		log.Info("Created user: %s (%s)", user.Username, user.Email)

		for i := 1; i <= postsPerUser; i++ {
			form := usecase.PostForm{
				Title: fmt.Sprintf("%s's post #%d", user.Username, i),
				Text:  fmt.Sprintf("This is demo post number %d written by %s.", i, user.Username),
			}
			post, err := postUseCase.CreatePost(ctx, user.ID, form)
			if err != nil {
				log.Error("Failed to create post %d for user %s: %v", i, user.Username, err)
				continue
			}
			log.Info("Created post %d: %s", post.ID, post.Title)
		}

		if u.inactive {
			if err := userRepo.SetActive(ctx, user.ID, false); err != nil {
				return fmt.Errorf("failed to deactivate user %s: %w", u.username, err)
			}
			log.Info("Deactivated user: %s", user.Username)
		}
	}

	count, err := postRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count posts: %w", err)
	}
	log.Info("Database holds %d posts", count)
	return nil
}
