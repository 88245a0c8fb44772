package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a login token for a staff member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := auth.NewService(cfg.JWTSecret, cfg.JWTTTL).GenerateToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var profileFlags struct {
	role, department, language, pushToken string
	telegramChat                          int64
}

var setProfileCmd = &cobra.Command{
	Use:   "set-profile <user-id>",
	Short: "Create or replace a staff profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		user, err := setProfile(cmd.Context(), s, models.ProfileRequest{
			UserID:     args[0],
			Role:       profileFlags.role,
			Department: profileFlags.department,
			Language:   profileFlags.language,
		}, profileFlags.pushToken, profileFlags.telegramChat)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Profile %s saved (role=%s, department=%s)\n", user.ID, user.Role, user.Department)
		return nil
	},
}

var complaintFlags struct {
	author, text, department string
}

var addComplaintCmd = &cobra.Command{
	Use:   "add-complaint",
	Short: "Store a new complaint",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		c, err := addComplaint(cmd.Context(), s, complaintFlags.author, complaintFlags.text, complaintFlags.department)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Complaint %s stored in %s\n", c.ID, c.Department)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and the change trigger (postgres backend only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		pg, ok := s.(*storage.PostgresStore)
		if !ok {
			log.Printf("%s backend needs no migrations", cfg.StoreBackend)
			return nil
		}
		if err := pg.Migrate(); err != nil {
			return err
		}
		log.Println("migrate: ok")
		return nil
	},
}

func init() {
	setProfileCmd.Flags().StringVar(&profileFlags.role, "role", config.DefaultRole, "ADMIN or STAFF")
	setProfileCmd.Flags().StringVar(&profileFlags.department, "department", "", "department the staff member handles")
	setProfileCmd.Flags().StringVar(&profileFlags.language, "language", "", "two-letter notice language")
	setProfileCmd.Flags().StringVar(&profileFlags.pushToken, "push-token", "", "FCM device token")
	setProfileCmd.Flags().Int64Var(&profileFlags.telegramChat, "telegram-chat", 0, "Telegram chat id")

	addComplaintCmd.Flags().StringVar(&complaintFlags.author, "author", "", "author user id")
	addComplaintCmd.Flags().StringVar(&complaintFlags.text, "text", "", "complaint text")
	addComplaintCmd.Flags().StringVar(&complaintFlags.department, "department", "", "routing department (default OTHER)")
	_ = addComplaintCmd.MarkFlagRequired("text")
}

func setProfile(ctx context.Context, s storage.Storage, req models.ProfileRequest, pushToken string, telegramChat int64) (*models.User, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	user := &models.User{
		ID:             req.UserID,
		Role:           strings.ToUpper(req.Role),
		Department:     string(models.NormalizeDepartment(req.Department)),
		Language:       strings.ToLower(req.Language),
		PushToken:      pushToken,
		TelegramChatID: telegramChat,
	}
	if err := s.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func addComplaint(ctx context.Context, s storage.Storage, author, text, department string) (*models.Complaint, error) {
	req := models.CreateComplaintRequest{Text: strings.TrimSpace(text), Department: department}
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	c := &models.Complaint{
		ID:         uuid.NewString(),
		AuthorID:   author,
		Text:       req.Text,
		Timestamp:  models.NewComplaintTimestamp(),
		Department: models.NormalizeDepartment(req.Department),
	}
	if err := s.SaveComplaint(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// errNoticeFailed is returned when the screen reported an error notice.
var errNoticeFailed = errors.New("operation failed")
