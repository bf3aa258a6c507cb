package core

import "errors"

var (
	// ErrUnknownImportType is returned for import types with no registered definition.
	ErrUnknownImportType = errors.New("unknown import type")

	// ErrMissingColumns is returned when a sheet lacks columns the import type requires.
	ErrMissingColumns = errors.New("missing required column")

	// ErrEmptyFile is returned when a sheet has no header or no data rows.
	ErrEmptyFile = errors.New("empty file")

	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

var (
	// ErrNoFile is returned when a request carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrFileTooLarge is returned when an upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrReportNotFound is returned for unknown or expired report IDs.
	ErrReportNotFound = errors.New("report not found")
)
