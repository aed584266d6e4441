package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/minglehq/mingle/backend/internal/messages"
	"github.com/minglehq/mingle/backend/internal/posts"
	"github.com/minglehq/mingle/backend/internal/social"
	"github.com/minglehq/mingle/backend/internal/stories"
	"github.com/minglehq/mingle/backend/internal/users"
)

// Open establishes a MySQL connection and performs schema migrations.
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)

	if err := migrate(db); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized")
	}

	return db, nil
}

// OpenSQLite opens a SQLite database with the same schema. Used by tests and
// local development where a MySQL server is not available.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&posts.Post{},
		&posts.Tag{},
		&posts.PostTag{},
		&posts.Like{},
		&posts.Comment{},
		&social.Follow{},
		&messages.Message{},
		&stories.Story{},
	)
}
