package mysql

import (
	"errors"
	"fmt"

	"Ewm_Platform/internal/model"
	"Ewm_Platform/internal/pkg"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open 按驱动名建立连接；生产用 mysql，本地开发和测试可以用 sqlite
func Open(driver, dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch driver {
	case "mysql":
		dial = gormmysql.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	// TranslateError 让唯一键冲突统一成 gorm.ErrDuplicatedKey
	db, err := gorm.Open(dial, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return db, nil
}

// MigrateMain 主服务建表（开发阶段 OK）
func MigrateMain(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Event{},
		&model.Request{},
		&model.Comment{},
		&model.Compilation{},
		&model.RequestOutbox{},
	)
}

// MigrateStats 统计服务建表
func MigrateStats(db *gorm.DB) error {
	return db.AutoMigrate(&model.Hit{})
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{pkg.ErrNotFound}, args...)...)
	}
	return err
}

func duplicated(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: "+format, append([]any{pkg.ErrDuplicateRequest}, args...)...)
	}
	return err
}
