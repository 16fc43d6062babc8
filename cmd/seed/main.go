// Seed loads the demo fixtures (a test user, regions, services and a few
// companies) into the configured database. Running it against a store that
// already holds users is a no-op.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	gorm "github.com/gartstein/wastedir/internal/directory/db"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config mirrors the database section of the service configuration.
type Config struct {
	DBHost     string `yaml:"DB_HOST"`
	DBPort     int    `yaml:"DB_PORT"`
	DBUser     string `yaml:"DB_USER"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBName     string `yaml:"DB_NAME"`
	DBSSLMode  string `yaml:"DB_SSLMODE"`
}

const seedPassword = "password123"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	repo, err := gorm.NewRepository(&gorm.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal("failed to initialize database: ", err)
	}
	defer repo.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash seed password: ", err)
	}

	seeded, err := repo.Seed(context.Background(), string(hash))
	if err != nil {
		log.Fatal("failed to seed data: ", err)
	}
	if !seeded {
		log.Println("Data already seeded")
		return
	}
	log.Println("Data seeded successfully")
}

func loadConfig() (*Config, error) {
	configPath := filepath.Join("internal", "directory", "config", "config.yaml")
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
