package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/jejumarket/checkout-service/internal/config"
)

func main() {
	var down bool
	flag.BoolVar(&down, "down", false, "roll back the last migration instead of applying")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Fatalf("can't load env: %v", err)
	}

	m, err := migrate.New("file://"+mustEnv("MIGRATIONS_PATH"), connString())
	if err != nil {
		log.Fatalf("can't create migration: %v", err)
	}

	if down {
		if err := m.Steps(-1); err != nil {
			log.Fatalf("can't roll back migration: %v", err)
		}

		fmt.Println("rolled back one migration")

		return
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")

			return
		}

		log.Fatalf("can't apply migrations: %v", err)
	}

	fmt.Println("migrations applied successfully")
}

func connString() string {
	configPath := mustEnv("CONFIG_PATH")

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("file '%s' doesn't exist: %v", configPath, err)
	}

	var cfg config.Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config: %v", err)
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&x-migrations-table=%s",
		cfg.Postgres.Username,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Database,
		mustEnv("MIGRATIONS_TABLE"),
	)
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("%s is not set", key)
	}

	return value
}
