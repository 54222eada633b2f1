// @title CoderEdu 测评评分 API
// @version 1.0
// @description 测验自动评分、作业人工评分与学习进度汇总服务。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"coder_edu_assessment/internal/app"
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/pkg/logger"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "配置文件所在目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	showVersion := flag.Bool("version", false, "打印版本号后退出")
	flag.Parse()

	if *showVersion {
		fmt.Fprintln(os.Stdout, version)
		return
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", *configDir, err)
	}
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly
	cfg.Version = version

	application := app.NewApp(cfg, *configDir)
	defer logger.Log.Sync()

	if *migrateOnly {
		application.Close(context.Background())
		logger.Log.Info("Database migration finished, exiting")
		return
	}

	application.Run()
}
