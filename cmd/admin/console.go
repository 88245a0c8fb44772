package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"complaintdesk/backend/internal/view"

	"github.com/spf13/cobra"
)

// consoleView prints every render as a table and every notice as a line.
type consoleView struct {
	out       io.Writer
	formatter view.Formatter

	mu       sync.Mutex
	rendered chan struct{}
	notices  chan models.Notice
}

func newConsoleView(out io.Writer, f view.Formatter) *consoleView {
	return &consoleView{
		out:       out,
		formatter: f,
		rendered:  make(chan struct{}, 1),
		notices:   make(chan models.Notice, 8),
	}
}

func (v *consoleView) Render(list []models.Complaint) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, "== %d complaint(s) ==\n", len(list))
	tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTEXT\tFEEDBACK")
	for _, row := range v.formatter.Rows(list) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.ID, row.Date, row.Text, row.Feedback)
	}
	tw.Flush()

	select {
	case v.rendered <- struct{}{}:
	default:
	}
}

func (v *consoleView) SetLanguage(lang string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.formatter = v.formatter.ForLanguage(lang)
}

// drainNotices discards notices that arrived before the caller's action.
func (v *consoleView) drainNotices() {
	for {
		select {
		case <-v.notices:
		default:
			return
		}
	}
}

func (v *consoleView) Notify(n models.Notice) {
	v.mu.Lock()
	fmt.Fprintf(v.out, "[%s] %s\n", n.Severity, n.Message)
	v.mu.Unlock()

	select {
	case v.notices <- n:
	default:
	}
}

// screenRun drives a ListController for one console session.
type screenRun struct {
	view    *consoleView
	actions chan models.FeedbackAction
	cancel  context.CancelFunc

	done chan struct{}
	err  error
}

func startScreen(ctx context.Context, s storage.Storage, out io.Writer, userID, lang string, f view.Formatter) (*screenRun, error) {
	localizer, err := localization.NewBundledLocalizer()
	if err != nil {
		return nil, err
	}

	if f.Messages == nil {
		f.Messages = localizer
	}

	ctx, cancel := context.WithCancel(ctx)
	run := &screenRun{
		view:    newConsoleView(out, f),
		actions: make(chan models.FeedbackAction),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	ctrl := complaint.NewListController(s, run.view, localizer)
	ctrl.DefaultLanguage = lang

	go func() {
		run.err = ctrl.Run(ctx, userID, run.actions)
		close(run.done)
	}()
	return run, nil
}

// waitRender blocks until the first list arrives or the controller stops.
func (r *screenRun) waitRender(ctx context.Context) error {
	select {
	case <-r.view.rendered:
		return nil
	case <-r.done:
		if r.err == nil {
			return context.Canceled
		}
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop cancels the controller and waits for it to release its subscription.
func (r *screenRun) stop() {
	r.cancel()
	<-r.done
}

var listFlags struct {
	as    string
	watch bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the complaint list as a staff member sees it",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		f := view.NewFormatter(cfg.Location(), "")
		run, err := startScreen(cmd.Context(), s, cmd.OutOrStdout(), listFlags.as, cfg.DefaultLanguage, f)
		if err != nil {
			return err
		}
		defer run.stop()

		if err := run.waitRender(cmd.Context()); err != nil {
			return err
		}
		if listFlags.watch {
			<-cmd.Context().Done()
		}
		return nil
	},
}

var feedbackFlags struct {
	as string
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <complaint-id> <text>",
	Short: "Submit feedback on a complaint visible to --as",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		f := view.NewFormatter(cfg.Location(), "")
		run, err := startScreen(cmd.Context(), s, cmd.OutOrStdout(), feedbackFlags.as, cfg.DefaultLanguage, f)
		if err != nil {
			return err
		}
		defer run.stop()
		return submitFeedback(cmd.Context(), run, args[0], args[1])
	},
}

func submitFeedback(ctx context.Context, run *screenRun, complaintID, text string) error {
	if err := run.waitRender(ctx); err != nil {
		return err
	}
	run.view.drainNotices()
	select {
	case run.actions <- models.FeedbackAction{ComplaintID: complaintID, Text: view.NormalizeFeedback(text)}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case n := <-run.view.notices:
		if n.Severity == models.SeverityError {
			return fmt.Errorf("%w: %s", errNoticeFailed, n.Message)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func init() {
	listCmd.Flags().StringVar(&listFlags.as, "as", "", "staff user id to view the list as")
	listCmd.Flags().BoolVar(&listFlags.watch, "watch", false, "keep printing the list on every change")
	_ = listCmd.MarkFlagRequired("as")

	feedbackCmd.Flags().StringVar(&feedbackFlags.as, "as", "", "staff user id submitting the feedback")
	_ = feedbackCmd.MarkFlagRequired("as")
}
