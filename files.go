// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskforceai

import "time"

// DefaultUploadMimeType is used when [FileUploadOptions.MimeType] is empty.
const DefaultUploadMimeType = "application/octet-stream"

// File describes an uploaded file.
type File struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Purpose   string    `json:"purpose"`
	Bytes     int64     `json:"bytes"`
	CreatedAt time.Time `json:"created_at,format:unix"`
	MimeType  string    `json:"mime_type,omitzero"`
}

// FileUploadOptions are the optional form fields of an upload.
type FileUploadOptions struct {
	Purpose  string
	MimeType string
}

// FileListResponse is one page of files.
type FileListResponse struct {
	Files []File `json:"files"`
	Total int64  `json:"total"`
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// DefaultPageLimit is used when [Page.Limit] is zero.
const DefaultPageLimit = 20
