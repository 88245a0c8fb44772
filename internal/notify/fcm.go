// Package notify pushes "your complaint has a response" notifications to the
// complaint author's device through Firebase Cloud Messaging.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Sender is the part of the FCM client used here.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// ProfileReader looks up the author's profile for their device token and language.
type ProfileReader interface {
	GetUserProfile(ctx context.Context, userID string) (models.Fields, error)
}

// Messages resolves the notification title.
type Messages interface {
	GetString(lang, key string) string
}

// PushNotifier delivers feedback to the author's registered device.
type PushNotifier struct {
	Sender          Sender
	Profiles        ProfileReader
	Messages        Messages
	DefaultLanguage string
}

// NewFCMNotifier creates a notifier from a service account credentials file.
func NewFCMNotifier(ctx context.Context, credentialsPath string, profiles ProfileReader, msgs Messages, defaultLanguage string) (*PushNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase messaging: %w", err)
	}
	return &PushNotifier{
		Sender:          client,
		Profiles:        profiles,
		Messages:        msgs,
		DefaultLanguage: defaultLanguage,
	}, nil
}

// FeedbackPosted pushes feedback to the complaint's author. Authors without a
// profile or a device token are skipped silently.
func (n *PushNotifier) FeedbackPosted(ctx context.Context, c models.Complaint, feedback string) error {
	if c.AuthorID == "" {
		return nil
	}

	profile, err := n.Profiles.GetUserProfile(ctx, c.AuthorID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load author %s: %w", c.AuthorID, err)
	}

	token := profile[config.FieldPushToken]
	if token == "" {
		return nil
	}
	lang := profile[config.FieldLanguage]
	if lang == "" {
		lang = n.DefaultLanguage
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Messages.GetString(lang, "push_feedback_title"),
			Body:  feedback,
		},
		Data: map[string]string{
			config.FieldComplaintID: c.ID,
		},
	}
	id, err := n.Sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	log.Printf("Push %s sent to author of %s", id, c.ID)
	return nil
}
