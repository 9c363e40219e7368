package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-attendance-api/internal/repository"
	"github.com/noah-isme/class-attendance-api/internal/seed"
	"github.com/noah-isme/class-attendance-api/internal/service"
	"github.com/noah-isme/class-attendance-api/migrations"
	"github.com/noah-isme/class-attendance-api/pkg/config"
	"github.com/noah-isme/class-attendance-api/pkg/database"
	"github.com/noah-isme/class-attendance-api/pkg/logger"
)

const resetQuery = `TRUNCATE attendances, students, classrooms`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := database.Migrate(ctx, db, migrations.FS, logr); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	if cfg.Seed.ResetOnStart {
		if _, err := db.ExecContext(ctx, resetQuery); err != nil {
			logr.Fatal("failed to reset tables", zap.Error(err))
		}
		logr.Info("existing data removed")
	}

	validate := service.NewValidator()
	classroomRepo := repository.NewClassroomRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	classrooms := service.NewClassroomService(classroomRepo, nil, validate, logr)
	students := service.NewStudentService(studentRepo, classroomRepo, nil, nil, validate, logr)
	attendance := service.NewAttendanceService(service.AttendanceServiceParams{
		Repo:      repository.NewAttendanceRepository(db),
		Students:  studentRepo,
		Validator: validate,
		Logger:    logr,
	})

	start := time.Now()
	summary, err := seed.New(classrooms, students, attendance, nil, logr).Run(ctx, cfg.Seed, time.Now())
	if err != nil {
		logr.Fatal("seeding failed", zap.Error(err), zap.Int("classrooms", summary.Classrooms))
	}
	logr.Info("seeding complete",
		zap.Int("classrooms", summary.Classrooms),
		zap.Int("students", summary.Students),
		zap.Int("records", summary.Records),
		zap.Duration("took", time.Since(start)),
	)
}
