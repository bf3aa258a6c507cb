package core

// error_messages.go maps technical errors to messages for catalog staff.
//
// Codes by group:
//
//	DB001-DB007    store failures (duplicates, references, connectivity, locks)
//	VAL001-VAL006  row and header problems
//	FILE001-FILE005 upload and parsing problems
//	IMP001-IMP005  import run problems (unknown type, busy, cancelled)
//	ERR000         anything else; check the logs for the original error
//
// Resolution order: sentinel errors (errors.Is), then Postgres SQLSTATE codes
// (errors.As on *pgconn.PgError), then case-insensitive substring patterns.
// The first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage is an error rendered for display.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	msgDuplicate   = UserMessage{"A record with this SKU already exists", "Remove the row or change its SKU", "DB001"}
	msgUnique      = UserMessage{"This value must be unique but already exists", "Check the file for repeated values", "DB002"}
	msgReference   = UserMessage{"Referenced record does not exist", "Import the parent product or vehicle first", "DB003"}
	msgConnRefused = UserMessage{"Unable to connect to the catalog database", "Please try again in a few moments", "DB004"}
	msgConnReset   = UserMessage{"Database connection was interrupted", "Verify which rows were saved before retrying", "DB005"}
	msgDBTimeout   = UserMessage{"Database operation timed out", "Import a smaller file or try again later", "DB006"}
	msgDeadlock    = UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}
	msgBadNumber   = UserMessage{"Invalid number format detected", "Use digits with a comma or dot as decimal separator", "VAL001"}
	msgBadBool     = UserMessage{"Invalid yes/no value detected", "Use TAK/NIE, YES/NO or 1/0", "VAL002"}
	msgRequired    = UserMessage{"Required value is empty", "Fill in every required column", "VAL003"}
	msgMissingCol  = UserMessage{"Required column is missing from the file", "Download a fresh template and copy your data into it", "VAL004"}
	msgUnknownRef  = UserMessage{"Column refers to an unknown catalog entry", "Check attribute, feature, price group and warehouse names", "VAL005"}
	msgBadOption   = UserMessage{"Value is not in the allowed list", "Check the allowed values for this column", "VAL006"}
	msgTooLarge    = UserMessage{"File exceeds the maximum size limit", "Split the file into smaller parts", "FILE001"}
	msgBadFormat   = UserMessage{"Unsupported file format", "Upload a .csv or .xlsx file", "FILE002"}
	msgUnreadable  = UserMessage{"File could not be read", "Save the file again as CSV (UTF-8) or XLSX", "FILE003"}
	msgNoFile      = UserMessage{"No file was selected", "Please select a file to import", "FILE004"}
	msgEmptyFile   = UserMessage{"The file has no data rows", "Add at least one row below the header", "FILE005"}
	msgUnknownType = UserMessage{"Unknown import type", "Use variants, features or compatibility", "IMP001"}
	msgBusy        = UserMessage{"Too many imports in progress", "Please wait a moment and try again", "IMP002"}
	msgCancelled   = UserMessage{"Import was cancelled", "Rows of unfinished batches were not saved", "IMP003"}
	msgRunTimeout  = UserMessage{"Import took too long and was stopped", "Import a smaller file", "IMP004"}
	msgNoReport    = UserMessage{"Error report not found", "Reports expire; run the import again", "IMP005"}
	defaultMessage = UserMessage{"An unexpected error occurred", "Please try again or contact support", "ERR000"}
)

// sentinelMessages are checked with errors.Is, in order.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrUnknownImportType, msgUnknownType},
	{ErrTooManyImports, msgBusy},
	{ErrReportNotFound, msgNoReport},
	{ErrMissingColumns, msgMissingCol},
	{ErrFileTooLarge, msgTooLarge},
	{ErrUnsupportedFormat, msgBadFormat},
	{ErrNoFile, msgNoFile},
	{ErrEmptyFile, msgEmptyFile},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgRunTimeout},
}

// sqlStateMessages maps Postgres error codes.
var sqlStateMessages = map[string]UserMessage{
	"23505": msgUnique,
	"23503": msgReference,
	"40P01": msgDeadlock,
	"57014": msgDBTimeout,
	"08006": msgConnReset,
	"08001": msgConnRefused,
}

// errorPatterns are substring matches on the lowercased error text.
// Specific patterns come before general ones.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"already exists", msgDuplicate},
	{"duplicate key", msgDuplicate},
	{"violates unique", msgUnique},
	{"unique constraint", msgUnique},
	{"violates foreign key", msgReference},
	{"does not exist", msgReference},
	{"connection refused", msgConnRefused},
	{"connection reset", msgConnReset},
	{"deadlock", msgDeadlock},
	{"timeout", msgDBTimeout},
	{"as a number", msgBadNumber},
	{"numeric value", msgBadNumber},
	{"whole number", msgBadNumber},
	{"yes/no", msgBadBool},
	{"is required", msgRequired},
	{"unknown attribute", msgUnknownRef},
	{"unknown feature", msgUnknownRef},
	{"unknown price", msgUnknownRef},
	{"unknown stock", msgUnknownRef},
	{"must be one of", msgBadOption},
	{"parse csv", msgUnreadable},
	{"open workbook", msgUnreadable},
	{"decode windows-1250", msgUnreadable},
}

// MapError converts an error into a UserMessage. Nil maps to the zero value.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := sqlStateMessages[pgErr.Code]; ok {
			return msg
		}
	}

	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

// MapMessage maps a plain message, as stored in BatchResult.Errors.
func MapMessage(message string) UserMessage {
	if message == "" {
		return UserMessage{}
	}
	return MapError(errors.New(message))
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError keeps the technical error for logs next to its display form.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string { return e.User.Message }

func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError maps err. Returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
