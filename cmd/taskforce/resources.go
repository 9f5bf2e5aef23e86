// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// subcommand splits args into the action name and its arguments.
func subcommand(group string, args []string, actions ...string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("usage: taskforce %s %v", group, actions)
	}
	for _, a := range actions {
		if args[0] == a {
			return a, args[1:], nil
		}
	}
	return "", nil, fmt.Errorf("unknown %s action %q", group, args[0])
}

func runFiles(ctx context.Context, args []string) error {
	action, args, err := subcommand("files", args, "list", "get", "upload", "download", "delete")
	if err != nil {
		return err
	}

	fs, configPath := newFlagSet("files " + action)
	limit := fs.Int("limit", 0, "page size (list)")
	offset := fs.Int("offset", 0, "page offset (list)")
	purpose := fs.String("purpose", "", "file purpose (upload)")
	mimeType := fs.String("mime", "", "content type (upload)")
	output := fs.String("o", "", "output path, - for stdout (download)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	switch action {
	case "list":
		list, err := a.client.ListFiles(ctx, taskforceai.Page{Limit: *limit, Offset: *offset})
		if err != nil {
			return err
		}
		for _, f := range list.Files {
			printFile(&f)
		}
		fmt.Fprintln(stdout, color.HiBlackString("%d of %d files", len(list.Files), list.Total))
		return nil

	case "upload":
		if fs.NArg() != 1 {
			return errors.New("expected exactly one PATH argument")
		}
		path := fs.Arg(0)
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		uploaded, err := a.client.UploadFile(ctx, filepath.Base(path), file, &taskforceai.FileUploadOptions{
			Purpose:  *purpose,
			MimeType: *mimeType,
		})
		if err != nil {
			return err
		}
		printFile(uploaded)
		return nil
	}

	if fs.NArg() != 1 {
		return errors.New("expected exactly one FILE_ID argument")
	}
	fileID := fs.Arg(0)

	switch action {
	case "get":
		f, err := a.client.GetFile(ctx, fileID)
		if err != nil {
			return err
		}
		printFile(f)
	case "download":
		data, err := a.client.DownloadFile(ctx, fileID)
		if err != nil {
			return err
		}
		if *output == "" || *output == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			return err
		}
		a.logger.Info("file downloaded", "file_id", fileID, "path", *output, "bytes", len(data))
	case "delete":
		if err := a.client.DeleteFile(ctx, fileID); err != nil {
			return err
		}
		fmt.Fprintln(stdout, color.GreenString("deleted"), fileID)
	}
	return nil
}

func printFile(f *taskforceai.File) {
	fmt.Fprintf(stdout, "%s  %s  %s  %s\n",
		color.CyanString(f.ID),
		f.Filename,
		color.HiBlackString("%d bytes", f.Bytes),
		color.HiBlackString(f.CreatedAt.Local().Format(time.DateTime)),
	)
}

func runThreads(ctx context.Context, args []string) error {
	action, args, err := subcommand("threads", args, "list", "get", "create", "messages", "run", "delete")
	if err != nil {
		return err
	}

	fs, configPath := newFlagSet("threads " + action)
	limit := fs.Int("limit", 0, "page size (list, messages)")
	offset := fs.Int("offset", 0, "page offset (list, messages)")
	title := fs.String("title", "", "thread title (create)")
	model := fs.String("model", "", "model id (run)")
	wait := fs.Bool("wait", false, "wait for the task started by run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	switch action {
	case "list":
		list, err := a.client.ListThreads(ctx, taskforceai.Page{Limit: *limit, Offset: *offset})
		if err != nil {
			return err
		}
		for _, t := range list.Threads {
			printThread(&t)
		}
		fmt.Fprintln(stdout, color.HiBlackString("%d of %d threads", len(list.Threads), list.Total))
		return nil

	case "create":
		t, err := a.client.CreateThread(ctx, &taskforceai.CreateThreadOptions{Title: *title})
		if err != nil {
			return err
		}
		printThread(t)
		return nil
	}

	if fs.NArg() < 1 {
		return errors.New("expected a THREAD_ID argument")
	}
	threadID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid thread id %q: %w", fs.Arg(0), err)
	}

	switch action {
	case "get":
		t, err := a.client.GetThread(ctx, threadID)
		if err != nil {
			return err
		}
		printThread(t)
	case "messages":
		msgs, err := a.client.GetThreadMessages(ctx, threadID, taskforceai.Page{Limit: *limit, Offset: *offset})
		if err != nil {
			return err
		}
		for _, m := range msgs.Messages {
			role := color.CyanString(string(m.Role))
			if m.Role == taskforceai.RoleAssistant {
				role = color.GreenString(string(m.Role))
			}
			fmt.Fprintf(stdout, "%s %s\n%s\n\n", role, color.HiBlackString(m.CreatedAt.Local().Format(time.DateTime)), m.Content)
		}
	case "run":
		prompt, err := readPrompt(fs.Args()[1:])
		if err != nil {
			return err
		}
		run, err := a.client.RunInThread(ctx, threadID, taskforceai.ThreadRunOptions{Prompt: prompt, ModelID: *model})
		if err != nil {
			return err
		}
		if !*wait {
			fmt.Fprintln(stdout, run.TaskID)
			return nil
		}
		status, err := a.client.WaitForCompletion(ctx, run.TaskID, nil)
		if err != nil {
			return err
		}
		printStatus(stdout, status)
		return status.Err()
	case "delete":
		if err := a.client.DeleteThread(ctx, threadID); err != nil {
			return err
		}
		fmt.Fprintln(stdout, color.GreenString("deleted"), threadID)
	}
	return nil
}

func printThread(t *taskforceai.Thread) {
	fmt.Fprintf(stdout, "%s  %s  %s\n",
		color.CyanString("%d", t.ID),
		valueOr(t.Title, "(untitled)"),
		color.HiBlackString(t.UpdatedAt.Local().Format(time.DateTime)),
	)
}
