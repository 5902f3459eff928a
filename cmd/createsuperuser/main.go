package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tcmflow/clinic-api/internal/config"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository/postgres"
	"github.com/tcmflow/clinic-api/pkg/security"
)

// createsuperuser provisions the first admin account. Further users
// are created through the API by an admin.
func main() {
	var (
		username = flag.String("username", "", "admin username")
		email    = flag.String("email", "", "admin email")
		password = flag.String("password", "", "admin password (prompted when omitted)")
	)
	flag.Parse()

	reader := bufio.NewReader(os.Stdin)
	if *username == "" {
		*username = prompt(reader, "Username: ")
	}
	if *email == "" {
		*email = prompt(reader, "Email: ")
	}
	if *password == "" {
		*password = prompt(reader, "Password: ")
	}
	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "username and password are required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)

	ctx := context.Background()
	if _, err := userRepo.GetByUsername(ctx, *username); err == nil {
		log.Fatal().Str("username", *username).Msg("user already exists")
	}

	hash, err := security.NewBcryptHasher(security.DefaultCost).Hash(*password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}

	user := &model.User{
		Username:     *username,
		Email:        *email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		log.Fatal().Err(err).Msg("failed to create user")
	}

	fmt.Printf("superuser %q created\n", user.Username)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}
