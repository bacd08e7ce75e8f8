package persistent

import (
	"tutorial-blog/services/blog/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate creates the schema without goose. Used for SQLite development
// databases and tests; production schemas come from migrations/.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.UserModel{}, &model.PostModel{})
}
