// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-json-experiment/json"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/transport"
)

// UploadFile uploads the content of r as filename.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader, opts *taskforceai.FileUploadOptions) (_ *taskforceai.File, err error) {
	const op = "upload file"
	if strings.TrimSpace(filename) == "" {
		return nil, taskforceai.InvalidArgument(op, "filename", "filename must not be empty")
	}
	if r == nil {
		return nil, taskforceai.InvalidArgument(op, "file", "file content must not be nil")
	}
	var o taskforceai.FileUploadOptions
	if opts != nil {
		o = *opts
	}
	if o.MimeType == "" {
		o.MimeType = taskforceai.DefaultUploadMimeType
	}

	ctx, span := c.startSpan(ctx, "UploadFile")
	defer func() { endSpan(span, err) }()

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", o.MimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("%s: read content: %w", op, err)
	}
	if o.Purpose != "" {
		if err := mw.WriteField("purpose", o.Purpose); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := mw.WriteField("mime_type", o.MimeType); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method:      http.MethodPost,
		Path:        taskforceai.FilesPath,
		Body:        buf,
		ContentType: mw.FormDataContentType(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse[taskforceai.File](op, resp)
}

// ListFiles returns one page of uploaded files.
func (c *Client) ListFiles(ctx context.Context, page taskforceai.Page) (*taskforceai.FileListResponse, error) {
	const op = "list files"
	query, err := pageQuery(op, page)
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   taskforceai.FilesPath,
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse[taskforceai.FileListResponse](op, resp)
}

// GetFile returns the metadata of a file.
func (c *Client) GetFile(ctx context.Context, fileID string) (*taskforceai.File, error) {
	const op = "get file"
	if err := validateID(op, "file_id", fileID); err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   filePath(fileID),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse[taskforceai.File](op, resp)
}

// DeleteFile removes a file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	const op = "delete file"
	if err := validateID(op, "file_id", fileID); err != nil {
		return err
	}
	if _, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path:   filePath(fileID),
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DownloadFile returns the content of a file.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	const op = "download file"
	if err := validateID(op, "file_id", fileID); err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   filePath(fileID) + "/content",
		Header: http.Header{"Accept": []string{"*/*"}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Body, nil
}

func filePath(id string) string {
	return taskforceai.FilesPath + "/" + url.PathEscape(id)
}

func validateID(op, field, id string) error {
	if strings.TrimSpace(id) == "" {
		return taskforceai.InvalidArgument(op, field, field+" must not be empty")
	}
	return nil
}

func pageQuery(op string, page taskforceai.Page) (url.Values, error) {
	if page.Limit < 0 {
		return nil, taskforceai.InvalidArgument(op, "limit", "limit must not be negative")
	}
	if page.Offset < 0 {
		return nil, taskforceai.InvalidArgument(op, "offset", "offset must not be negative")
	}
	limit := page.Limit
	if limit == 0 {
		limit = taskforceai.DefaultPageLimit
	}
	return url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(page.Offset)},
	}, nil
}

func decodeResponse[T any](op string, resp *transport.Response) (*T, error) {
	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, taskforceai.DecodeError(op, err)
	}
	return &out, nil
}
