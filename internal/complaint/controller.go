// Package complaint implements the admin complaint list screen: it resolves the
// signed-in staff member's visibility, keeps the filtered list in sync with the
// store and relays feedback edits back to it.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
)

// View receives the ordered list and user notices.
type View interface {
	Render(complaints []models.Complaint)
	Notify(notice models.Notice)
}

// LanguageSetter is implemented by views that render localized row texts.
// The controller calls it once the profile language is known.
type LanguageSetter interface {
	SetLanguage(lang string)
}

// Messages resolves notice texts.
type Messages interface {
	Format(lang, key string, args ...interface{}) string
}

// Notifier is told about feedback that reached the store.
type Notifier interface {
	FeedbackPosted(ctx context.Context, complaint models.Complaint, feedback string) error
}

// ListController drives one screen. It is not safe for concurrent use: all
// methods must be called from the goroutine running Run (or from a single
// goroutine when Run is not used).
type ListController struct {
	Storage         storage.Storage
	View            View
	Messages        Messages
	Notifier        Notifier
	DefaultLanguage string

	profile models.AdminProfile
	// sub is the single live subscription owned by this controller.
	// It is always closed before being replaced.
	sub     storage.Subscription
	visible []models.Complaint
}

// NewListController wires a controller to its store, view and message catalog.
func NewListController(s storage.Storage, v View, m Messages) *ListController {
	return &ListController{
		Storage:         s,
		View:            v,
		Messages:        m,
		DefaultLanguage: "en",
	}
}

// Profile returns the profile resolved by the last Initialize.
func (c *ListController) Profile() models.AdminProfile { return c.profile }

// Visible returns the list last handed to the view.
func (c *ListController) Visible() []models.Complaint { return c.visible }

// Subscribed reports whether a live subscription is currently held.
func (c *ListController) Subscribed() bool { return c.sub != nil }

// Initialize resolves the user's role and department with a single read and
// then opens the complaints subscription, replacing any previous one.
func (c *ListController) Initialize(ctx context.Context, userID string) error {
	c.detach()
	c.visible = nil

	if strings.TrimSpace(userID) == "" {
		c.notify(c.DefaultLanguage, models.SeverityError, "please_log_in")
		return models.ErrUnauthenticated
	}

	fields, err := c.Storage.GetUserProfile(ctx, userID)
	switch {
	case errors.Is(err, models.ErrUserNotFound):
		log.Printf("WARNING: no profile for user %s, using defaults", userID)
		fields = models.Fields{}
	case err != nil:
		log.Printf("ERROR: Failed to load profile for %s: %v", userID, err)
		c.notify(c.DefaultLanguage, models.SeverityError, "error_loading_user", err.Error())
		return err
	}
	c.profile = models.NewAdminProfile(userID, fields, c.DefaultLanguage)
	if ls, ok := c.View.(LanguageSetter); ok {
		ls.SetLanguage(c.profile.Language)
	}

	sub, err := c.Storage.SubscribeComplaints(ctx)
	if err != nil {
		log.Printf("ERROR: Failed to subscribe to complaints for %s: %v", userID, err)
		c.notify(c.profile.Language, models.SeverityError, "error_loading_complaints", err.Error())
		return err
	}
	c.sub = sub
	log.Printf("INFO: screen opened for %s (role=%s, department=%s)", userID, c.profile.Role, c.profile.Department)
	return nil
}

// OnComplaintsChanged recomputes the visible list from a full snapshot and renders it.
func (c *ListController) OnComplaintsChanged(snap models.Snapshot) {
	c.visible = Visible(c.profile, ParseSnapshot(snap))
	c.View.Render(c.visible)
}

// OnSubscriptionError reports a failed subscription delivery. It does not retry.
func (c *ListController) OnSubscriptionError(err error) {
	log.Printf("ERROR: complaints subscription for %s: %v", c.profile.UserID, err)
	c.notify(c.profile.Language, models.SeverityError, "error_loading_complaints", err.Error())
}

// SubmitFeedback validates and writes feedback synchronously.
func (c *ListController) SubmitFeedback(ctx context.Context, complaintID, text string) error {
	target, feedback, err := c.prepareFeedback(complaintID, text)
	if err != nil {
		return err
	}
	err = c.write(ctx, target, feedback)
	c.finishFeedback(target, err)
	return err
}

// Teardown releases the live subscription. Calling it with nothing attached is a no-op.
func (c *ListController) Teardown() {
	c.detach()
}

// Run is the screen's sequential execution context: it initializes, then
// serializes subscription deliveries, view submits and write completions until
// ctx is cancelled or actions is closed. The subscription is always released on return.
func (c *ListController) Run(ctx context.Context, userID string, actions <-chan models.FeedbackAction) error {
	defer c.Teardown()

	if err := c.Initialize(ctx, userID); err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	results := make(chan writeResult)

	for {
		var events <-chan models.ComplaintEvent
		if c.sub != nil {
			events = c.sub.Events()
		}

		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				log.Printf("WARNING: complaints subscription for %s ended", c.profile.UserID)
				c.detach()
				continue
			}
			if ev.Err != nil {
				c.OnSubscriptionError(ev.Err)
				continue
			}
			c.OnComplaintsChanged(ev.Snapshot)

		case action, ok := <-actions:
			if !ok {
				return nil
			}
			target, feedback, err := c.prepareFeedback(action.ComplaintID, action.Text)
			if err != nil {
				continue
			}
			go func() {
				res := writeResult{complaint: target, err: c.write(ctx, target, feedback)}
				select {
				case results <- res:
				case <-stop:
				}
			}()

		case res := <-results:
			c.finishFeedback(res.complaint, res.err)
		}
	}
}

type writeResult struct {
	complaint models.Complaint
	err       error
}

// prepareFeedback rejects empty text locally and resolves the target among the
// complaints currently on screen.
func (c *ListController) prepareFeedback(complaintID, text string) (models.Complaint, string, error) {
	feedback := strings.TrimSpace(text)
	if feedback == "" {
		c.notify(c.profile.Language, models.SeverityError, "please_enter_feedback")
		return models.Complaint{}, "", fmt.Errorf("%w: feedback is empty", models.ErrValidation)
	}
	for _, v := range c.visible {
		if v.ID == complaintID {
			return v, feedback, nil
		}
	}
	c.notify(c.profile.Language, models.SeverityError, "complaint_not_on_screen")
	return models.Complaint{}, "", fmt.Errorf("%w: %s is not on screen", models.ErrComplaintNotFound, complaintID)
}

// write performs the store write and, on success, the author notification.
// It touches no controller state, so it may run off the loop goroutine.
func (c *ListController) write(ctx context.Context, target models.Complaint, feedback string) error {
	if err := c.Storage.SetComplaintField(ctx, target.ID, config.FieldFeedback, feedback); err != nil {
		return err
	}
	if c.Notifier != nil {
		if err := c.Notifier.FeedbackPosted(ctx, target, feedback); err != nil {
			log.Printf("WARNING: feedback on %s saved but author was not notified: %v", target.ID, err)
		}
	}
	return nil
}

func (c *ListController) finishFeedback(target models.Complaint, err error) {
	if err != nil {
		log.Printf("ERROR: Failed to submit feedback on %s: %v", target.ID, err)
		c.notify(c.profile.Language, models.SeverityError, "error_submitting_feedback", err.Error())
		return
	}
	c.notify(c.profile.Language, models.SeverityInfo, "feedback_submitted")
}

func (c *ListController) detach() {
	if c.sub == nil {
		return
	}
	if err := c.sub.Close(); err != nil {
		log.Printf("WARNING: closing complaints subscription: %v", err)
	}
	c.sub = nil
}

func (c *ListController) notify(lang string, severity models.Severity, key string, args ...interface{}) {
	if lang == "" {
		lang = c.DefaultLanguage
	}
	c.View.Notify(models.Notice{
		Message:  c.Messages.Format(lang, key, args...),
		Severity: severity,
	})
}
