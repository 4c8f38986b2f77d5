// 手动触发过期问卷记录清理
//
// 主应用的后台任务按 disposer.interval_minutes 定时执行清理。
// 此脚本用于手动执行一次，例如调整保留期后先用 -dry-run 核对候选记录。
//
// 用法: go run scripts/dispose_expired.go -dry-run

package main

import (
	"context"
	"flag"
	"log"

	"pcq_backend/internal/config"
	"pcq_backend/internal/repository"
	"pcq_backend/internal/service"
	"pcq_backend/pkg/database"
	"pcq_backend/pkg/logger"
	"pcq_backend/pkg/security"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	dryRun := flag.Bool("dry-run", true, "只记录候选记录，不删除")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	encryptor, err := security.NewFieldEncryptor(cfg.PCQ.EncryptionKey)
	if err != nil {
		log.Fatalf("加密配置错误: %v", err)
	}

	settings := cfg.Disposer
	settings.Enabled = true
	settings.DryRun = *dryRun

	disposer := service.NewDisposalService(repository.NewAnswerRepository(db, encryptor), nil, settings)

	log.Printf("手动触发清理任务 (dry-run=%t)...", *dryRun)
	report, err := disposer.DisposeExpired(context.Background())
	if err != nil {
		log.Fatalf("清理失败: %v", err)
	}
	log.Printf("完成！候选 %d 条，删除 已关联案件 %d 条 / 未关联案件 %d 条",
		report.CandidateCount(), report.DeletedWithCase, report.DeletedNoCase)
}
