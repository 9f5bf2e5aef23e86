// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/client"
)

// stdout receives command output.
var stdout io.Writer = color.Output

// submitFlags are the task options shared by run and submit.
type submitFlags struct {
	model  string
	silent bool
	mock   bool
	images []taskforceai.ImageAttachment
}

func (f *submitFlags) options() *taskforceai.TaskSubmissionOptions {
	return &taskforceai.TaskSubmissionOptions{
		ModelID: f.model,
		Silent:  f.silent,
		Mock:    f.mock,
		Images:  f.images,
	}
}

func (f *submitFlags) addImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("%s is not a recognized image type", path)
	}
	f.images = append(f.images, taskforceai.ImageAttachment{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
		Name:     filepath.Base(path),
	})
	return nil
}

// readPrompt joins args, or reads standard input when there are none.
func readPrompt(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runRun(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("run")
	var sf submitFlags
	fs.StringVar(&sf.model, "model", "", "model id")
	fs.BoolVar(&sf.silent, "silent", false, "suppress intermediate agent output")
	fs.BoolVar(&sf.mock, "mock", false, "ask the service for a mock run")
	fs.Func("image", "attach an image file (repeatable)", sf.addImage)
	stream := fs.Bool("stream", false, "follow the task over server-sent events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prompt, err := readPrompt(fs.Args())
	if err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if *stream {
		s, err := a.client.RunTaskStream(ctx, prompt, sf.options())
		if err != nil {
			return err
		}
		return followStream(ctx, a, s)
	}

	status, err := a.client.RunTask(ctx, prompt, sf.options(), nil)
	if err != nil {
		return err
	}
	printStatus(stdout, status)
	return status.Err()
}

func runSubmit(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("submit")
	var sf submitFlags
	fs.StringVar(&sf.model, "model", "", "model id")
	fs.BoolVar(&sf.silent, "silent", false, "suppress intermediate agent output")
	fs.BoolVar(&sf.mock, "mock", false, "ask the service for a mock run")
	fs.Func("image", "attach an image file (repeatable)", sf.addImage)
	if err := fs.Parse(args); err != nil {
		return err
	}

	prompt, err := readPrompt(fs.Args())
	if err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	taskID, err := a.client.SubmitTask(ctx, prompt, sf.options())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, taskID)
	return nil
}

// taskArg returns the single task id argument.
func taskArg(fs interface{ Args() []string }) (taskforceai.TaskID, error) {
	if len(fs.Args()) != 1 {
		return "", errors.New("expected exactly one TASK_ID argument")
	}
	return fs.Args()[0], nil
}

func runStatus(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	taskID, err := taskArg(fs)
	if err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.client.GetTaskStatus(ctx, taskID)
	if err != nil {
		return err
	}
	printStatus(stdout, status)
	return nil
}

func runWait(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("wait")
	interval := fs.Duration("interval", 0, "wait between status fetches (0 uses the configured default)")
	attempts := fs.Int("attempts", 0, "status fetches before giving up (0 uses the configured default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	taskID, err := taskArg(fs)
	if err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.client.WaitForCompletion(ctx, taskID, &client.PollOptions{
		Interval:    *interval,
		MaxAttempts: *attempts,
	})
	if err != nil {
		return err
	}
	printStatus(stdout, status)
	return status.Err()
}

func runStream(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("stream")
	if err := fs.Parse(args); err != nil {
		return err
	}
	taskID, err := taskArg(fs)
	if err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.client.StreamTaskStatus(ctx, taskID)
	if err != nil {
		return err
	}
	return followStream(ctx, a, s)
}

// followStream prints every status of s and returns the error of the last one.
func followStream(ctx context.Context, a *app, s *client.Stream) error {
	var last *taskforceai.TaskStatus
	for ev := range s.Events(ctx) {
		switch {
		case ev.Warning():
			a.logger.Warn("skipped stream event", slog.String("task_id", s.TaskID()), slog.String("error", ev.Err.Error()))
		case ev.Err != nil:
			return ev.Err
		default:
			printStatus(stdout, ev.Status)
			last = ev.Status
		}
	}
	if last == nil {
		return nil
	}
	return last.Err()
}

func runPending(ctx context.Context, args []string) error {
	fs, configPath := newFlagSet("pending")
	resume := fs.Bool("resume", false, "wait for every pending task")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		return errors.New("no tracker configured; set tracker.driver in the config file")
	}

	if !*resume {
		subs, err := a.client.Pending(ctx)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Fprintln(stdout, color.HiBlackString("no pending tasks"))
			return nil
		}
		for _, sub := range subs {
			fmt.Fprintf(stdout, "%s  %s  %s  %s\n",
				color.CyanString(sub.TaskID),
				color.HiBlackString(sub.SubmittedAt.Local().Format(time.DateTime)),
				valueOr(sub.ModelID, "-"),
				truncate(sub.Prompt, 60),
			)
		}
		return nil
	}

	statuses, err := a.client.ResumePending(ctx, nil)
	if err != nil {
		return err
	}
	var errs []error
	for _, status := range statuses {
		printStatus(stdout, status)
		if err := status.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func stateColor(state taskforceai.TaskState) *color.Color {
	switch state {
	case taskforceai.TaskStateCompleted:
		return color.New(color.FgGreen, color.Bold)
	case taskforceai.TaskStateFailed:
		return color.New(color.FgRed, color.Bold)
	case taskforceai.TaskStateCancelled:
		return color.New(color.FgYellow)
	case taskforceai.TaskStateRunning:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgHiBlack)
	}
}

func printStatus(w io.Writer, s *taskforceai.TaskStatus) {
	fmt.Fprintf(w, "%s %s", color.HiBlackString(s.ID), stateColor(s.State).Sprint(s.State.String()))
	if !s.UpdatedAt.IsZero() {
		fmt.Fprint(w, color.HiBlackString(" "+s.UpdatedAt.Local().Format(time.DateTime)))
	}
	fmt.Fprintln(w)
	for _, warning := range s.Warnings {
		fmt.Fprintf(w, "  %s %s\n", color.YellowString("warning:"), warning)
	}
	if s.Result != nil {
		fmt.Fprintln(w, *s.Result)
	}
	if s.Error != nil {
		fmt.Fprintf(w, "%s %s\n", color.RedString("error:"), *s.Error)
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
