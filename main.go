// @title PCQ 后端 API
// @version 1.0
// @description 问卷答案记录的提交、案件关联与到期清理服务。

// @host localhost:4555
// @BasePath /
// @securityDefinitions.apikey ServiceAuth
// @in header
// @name ServiceAuthorization

package main

import (
	"flag"
	"log"

	"pcq_backend/internal/app"
	"pcq_backend/internal/config"
	"pcq_backend/pkg/database"
	"pcq_backend/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	// 迁移完成后直接退出，不启动服务和后台任务
	if cfg.MigrateOnly {
		if _, err := database.InitDB(&cfg.Database, true); err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application := app.NewApp(cfg, *configDir)
	defer logger.Log.Sync()

	application.Run()
}
