// Package database 负责初始化关系型数据库与 Redis 连接。
package database

import (
	"fmt"
	"time"

	"archetype-go/internal/config"
	"archetype-go/internal/model"
	"archetype-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Dialector 根据配置的驱动名返回对应的 GORM 方言。
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres", "postgresql", "":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// InitDB 初始化数据库连接，并按配置执行表结构迁移。
func InitDB(cfg config.DatabaseConfig) {
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatal("invalid database config", err)
	}

	DB, err = gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := AutoMigrate(DB); err != nil {
			log.Fatal("failed to migrate database", err)
		}
	}

	log.Infof("Database (%s) connected successfully", cfg.Driver)
}

// AutoMigrate 创建 runs、run_answers、short_results 三张表及其外键。
// short_results.run_id 为主键，由存储层保证与 runs 一对一。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Run{}, &model.RunAnswer{}, &model.ShortResult{})
}

// Ping 检查数据库是否可用，供 /health/db 使用。
func Ping(db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(timeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
