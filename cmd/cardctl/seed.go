package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campus-nfc/card-service/internal/auth"
	"github.com/campus-nfc/card-service/internal/domain"
	"github.com/campus-nfc/card-service/internal/persistence"
	"github.com/campus-nfc/card-service/internal/repository"
	apperrors "github.com/campus-nfc/card-service/pkg/util/errorutil"
)

type adminSeed struct {
	firstName  string
	lastName   string
	email      string
	cardNumber string
	department string
	password   string
}

var seed adminSeed

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert bootstrap data",
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create an active administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if strings.TrimSpace(seed.email) == "" || strings.TrimSpace(seed.cardNumber) == "" {
			return errors.New("--email and --card-number are required")
		}
		if len(seed.password) < cfg.Auth.MinPasswordLength {
			return errors.New("password is too short")
		}

		ctx := cmd.Context()
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()

		hash, err := auth.HashPassword(seed.password, cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}
		user := &domain.User{
			FirstName:    strings.TrimSpace(seed.firstName),
			LastName:     strings.TrimSpace(seed.lastName),
			Email:        strings.ToLower(strings.TrimSpace(seed.email)),
			PasswordHash: hash,
			CardNumber:   strings.TrimSpace(seed.cardNumber),
			Role:         domain.RoleAdmin,
			Department:   strings.TrimSpace(seed.department),
			State:        domain.StateActive,
		}
		if err := repository.NewUserRepository(pg.Pool).Create(ctx, user); err != nil {
			if _, ok := apperrors.IsUniqueViolation(err); ok {
				logger.Info("admin already present", zap.String("card_number", user.CardNumber))
				return nil
			}
			return err
		}
		logger.Info("admin created", zap.String("user_id", user.ID), zap.String("card_number", user.CardNumber))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.AddCommand(seedAdminCmd)

	f := seedAdminCmd.Flags()
	f.StringVar(&seed.firstName, "first-name", "Campus", "first name")
	f.StringVar(&seed.lastName, "last-name", "Admin", "last name")
	f.StringVar(&seed.email, "email", "", "login email")
	f.StringVar(&seed.cardNumber, "card-number", "", "card number used to sign in")
	f.StringVar(&seed.department, "department", "Administration", "department label")
	f.StringVar(&seed.password, "password", "", "initial password")
}
