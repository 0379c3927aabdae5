package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/adpulse/adpulse/internal/database"
)

func main() {
	var (
		host     = flag.String("host", "localhost", "Database host")
		port     = flag.Int("port", 5432, "Database port")
		username = flag.String("username", "postgres", "Database username")
		password = flag.String("password", "", "Database password")
		dbname   = flag.String("database", "adpulse", "Database name")
		sslmode  = flag.String("sslmode", "disable", "SSL mode")
		check    = flag.Bool("check", false, "Only verify connectivity, do not migrate")
	)
	flag.Parse()

	// Environment variables override flag defaults.
	if envHost := os.Getenv("DB_HOST"); envHost != "" {
		*host = envHost
	}
	if envPort := os.Getenv("DB_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}
	if envUsername := os.Getenv("DB_USERNAME"); envUsername != "" {
		*username = envUsername
	}
	if envPassword := os.Getenv("DB_PASSWORD"); envPassword != "" {
		*password = envPassword
	}
	if envDatabase := os.Getenv("DB_DATABASE"); envDatabase != "" {
		*dbname = envDatabase
	}
	if envSSLMode := os.Getenv("DB_SSL_MODE"); envSSLMode != "" {
		*sslmode = envSSLMode
	}

	config := database.GetDefaultConfig()
	config.Host = *host
	config.Port = *port
	config.Username = *username
	config.Password = *password
	config.Database = *dbname
	config.SSLMode = *sslmode

	db, err := database.New(config)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *check {
		fmt.Println("Database connection OK")
		return
	}

	start := time.Now()
	if err := db.Connection().AutoMigrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Printf("Migration completed in %s\n", time.Since(start).Round(time.Millisecond))
}
