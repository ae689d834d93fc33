package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"webcrud/internal/config"
	"webcrud/internal/db"
	"webcrud/internal/logging"
	"webcrud/internal/model"
	"webcrud/internal/repository"
	"webcrud/internal/service"
)

func main() {
	source := flag.String("file", "seed/users.json", "JSON file or http(s) URL with an array of users")
	flag.Parse()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log, *source); err != nil {
		log.WithError(err).Fatal("seed failed")
	}
}

func run(cfg *config.Config, log *logrus.Logger, source string) error {
	gormDB, err := db.NewMySQL(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database init: %w", err)
	}
	defer closeDB(gormDB, log)
	log.Info("connected to database")

	if err := migrate(gormDB, cfg.Database); err != nil {
		return err
	}

	log.WithField("source", source).Info("loading users")
	inputs, err := loadUsers(source)
	if err != nil {
		return err
	}

	repo := repository.NewUserRepository(gormDB, cfg.Database.QueryTimeout)
	users := service.NewUserService(repo, service.NewValidator(), log)
	seeder := service.NewSeedService(repo, users, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := seeder.SeedUsers(ctx, inputs)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"total":   len(inputs),
		"created": res.Created,
		"skipped": res.Skipped,
		"invalid": res.Invalid,
	}).Info("seed completed")
	return nil
}

func closeDB(gormDB *gorm.DB, log logrus.FieldLogger) {
	if err := db.Close(gormDB); err != nil {
		log.WithError(err).Warn("close database")
	}
}

// migrate runs AutoMigrate unless DB_AUTO_MIGRATE is off.
func migrate(gormDB *gorm.DB, cfg config.Database) error {
	if !cfg.AutoMigrate {
		return nil
	}
	return db.Migrate(gormDB)
}

// loadUsers reads the user array from a local file or an http(s) URL.
func loadUsers(source string) ([]model.UserInput, error) {
	var r io.ReadCloser
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", source, resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open seed file: %w", err)
		}
		r = f
	}
	defer r.Close()

	var users []model.UserInput
	if err := json.NewDecoder(r).Decode(&users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return users, nil
}
