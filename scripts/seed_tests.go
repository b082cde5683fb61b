// 导入试卷、账号与报名记录
//
// 用法: go run scripts/seed_tests.go -file scripts/seed.yaml [-token teacher@example.com]
//
// -token 为已导入的教职工账号签发访问令牌并打印到标准输出

package main

import (
	"context"
	"flag"
	"fmt"
	"institute_backend/internal/config"
	"institute_backend/internal/model"
	"institute_backend/internal/repository"
	"institute_backend/internal/seed"
	"institute_backend/internal/util"
	"institute_backend/pkg/database"
	"institute_backend/pkg/logger"
	"log"
	"os"
)

type store struct {
	users         *repository.UserRepository
	tests         *repository.TestRepository
	registrations *repository.RegistrationRepository
}

func (s store) UpsertUser(ctx context.Context, user *model.User) error {
	return s.users.Upsert(ctx, user)
}

func (s store) SaveTest(ctx context.Context, test *model.Test) error {
	return s.tests.SaveTest(ctx, test)
}

func (s store) UpsertRegistration(ctx context.Context, reg *model.Registration) error {
	return s.registrations.Upsert(ctx, reg)
}

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	file := flag.String("file", "scripts/seed.yaml", "导入文件")
	tokenFor := flag.String("token", "", "导入后为该邮箱的账号签发令牌")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法打开导入文件: %v", err)
	}
	defer f.Close()

	data, err := seed.Decode(f)
	if err != nil {
		log.Fatalf("导入文件不合法: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	s := store{
		users:         repository.NewUserRepository(db),
		tests:         repository.NewTestRepository(db),
		registrations: repository.NewRegistrationRepository(db),
	}
	if err := seed.Apply(context.Background(), s, data); err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Printf("完成！用户 %d，试卷 %d，报名 %d", len(data.Users), len(data.Tests), len(data.Registrations))

	if *tokenFor == "" {
		return
	}
	user, err := s.users.FindByEmail(context.Background(), *tokenFor)
	if err != nil {
		log.Fatalf("找不到账号 %s: %v", *tokenFor, err)
	}
	token, err := util.GenerateJWT(user, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	if err != nil {
		log.Fatalf("签发令牌失败: %v", err)
	}
	fmt.Println(token)
}
