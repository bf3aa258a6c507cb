package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/logging"
)

// maxExampleRows caps ?examples= on template downloads.
const maxExampleRows = 20

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory.
const multipartMemory = 8 << 20

type healthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database,omitempty"`
	Imports  core.ImportLimiterStatus `json:"imports"`
	Reports  int                      `json:"reports"`
}

// handleHealth reports liveness, database reachability and import slots.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Imports: s.limiter.Status(), Reports: s.reports.len()}
	status := http.StatusOK

	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health: database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, status, resp)
}

type importTypeInfo struct {
	Type            core.ImportType `json:"type"`
	Label           string          `json:"label"`
	RequiredColumns []string        `json:"required_columns"`
}

// handleListTypes lists registered import types.
func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	defs := core.ImportTypes()
	out := make([]importTypeInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, importTypeInfo{Type: d.Type, Label: d.Label, RequiredColumns: d.RequiredColumns()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTemplate downloads a template as CSV (default) or XLSX.
//
// Query: format=csv|xlsx, examples=N (0-20).
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	importType, err := core.ParseImportType(chi.URLParam(r, "importType"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	examples := min(parseIntParam(r, "examples", s.cfg.Import.ExampleRows), maxExampleRows)
	format := strings.ToLower(r.URL.Query().Get("format"))

	var buf bytes.Buffer
	var contentType, ext string
	switch format {
	case "", "csv":
		rows, err := s.templates.GenerateTemplateWithExamples(r.Context(), importType, examples)
		if err == nil {
			err = core.WriteCSV(&buf, rows)
		}
		if err != nil {
			s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
			return
		}
		contentType, ext = "text/csv; charset=utf-8", "csv"
	case "xlsx":
		if err := s.templates.WriteXLSX(r.Context(), &buf, importType, examples); err != nil {
			s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
			return
		}
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"
	default:
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format), http.StatusBadRequest)
		return
	}

	writeAttachment(w, contentType, fmt.Sprintf("szablon_%s.%s", importType, ext), buf.Bytes())
}

type detectResponse struct {
	ImportType core.ImportType    `json:"import_type"`
	Sheet      string             `json:"sheet,omitempty"`
	Rows       int                `json:"rows"`
	Mapping    core.ColumnMapping `json:"mapping"`
	Ready      bool               `json:"ready"`
	Problem    *ErrorResponse     `json:"problem,omitempty"`
}

// handleDetect reads an uploaded file and returns its column mapping without
// importing anything. Missing columns are reported in the body, not as an
// error status, so the client can show what was recognized.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	importType, err := core.ParseImportType(chi.URLParam(r, "importType"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	table, _, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusBadRequest))
		return
	}

	mapping, err := s.importer.Detect(importType, table.Header)
	resp := detectResponse{
		ImportType: importType,
		Sheet:      table.Sheet,
		Rows:       len(table.Rows),
		Mapping:    mapping,
		Ready:      err == nil,
	}
	if err != nil {
		if !errors.Is(err, core.ErrMissingColumns) {
			s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
			return
		}
		problem := newErrorResponse(core.MapError(err))
		problem.Error = err.Error()
		resp.Problem = &problem
	}
	writeJSON(w, http.StatusOK, resp)
}

// maxListedErrors caps the errors embedded in an import response; the full
// list is in the downloadable report.
const maxListedErrors = 50

type importResponse struct {
	*core.RunResult
	Errors    []core.ValidationError `json:"errors,omitempty"`
	ReportID  string                 `json:"report_id,omitempty"`
	ReportURL string                 `json:"report_url,omitempty"`
	Problem   *ErrorResponse         `json:"problem,omitempty"`
}

// handleImport runs an import from a multipart upload.
//
// Form fields: file, sheet, dry_run, batch_size, auto_combinations.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	importType, err := core.ParseImportType(chi.URLParam(r, "importType"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	table, filename, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusBadRequest))
		return
	}
	opts := s.runOptions(r)

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err, statusFor(err, http.StatusServiceUnavailable))
		return
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	logging.FromContext(ctx).Info("import requested",
		"import_type", importType,
		"file", filename,
		"rows", len(table.Rows),
		"dry_run", opts.DryRun,
		"batch_size", opts.BatchSize,
	)

	res, err := s.importer.Run(ctx, importType, table, opts)
	if res == nil {
		s.respondError(w, r, err, statusFor(err, http.StatusInternalServerError))
		return
	}

	resp := importResponse{RunResult: res}
	if errs := res.Report.Errors(); len(errs) > 0 {
		s.reports.put(res.ID, importType, res.Report)
		resp.Errors = errs[:min(len(errs), maxListedErrors)]
		resp.ReportID = res.ID.String()
		resp.ReportURL = "/api/import/reports/" + resp.ReportID
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err, http.StatusInternalServerError)
		problem := newErrorResponse(core.MapError(err))
		resp.Problem = &problem
		logging.FromContext(ctx).Error("import stopped early", "run_id", res.ID, "error", err)
	}
	writeJSON(w, status, resp)
}

// handleReport downloads the error report of a finished import.
//
// Query: format=csv|xlsx.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "reportID"))
	if err != nil {
		s.respondError(w, r, core.ErrReportNotFound, http.StatusNotFound)
		return
	}
	entry, err := s.reports.get(id)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	name := fmt.Sprintf("bledy_%s_%s", entry.importType, id.String()[:8])
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		if err := entry.report.ExportCSV(&buf); err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", name+".csv", buf.Bytes())
	case "xlsx":
		if err := entry.report.ExportXLSX(&buf); err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", name+".xlsx", buf.Bytes())
	default:
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrUnsupportedFormat, format), http.StatusBadRequest)
	}
}

// readUpload parses the multipart "file" field into a table. XLSX files are
// read from the "sheet" field's sheet, else the one named after the import
// type, else the first.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (core.Table, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return core.Table{}, "", fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, s.cfg.Import.MaxFileSize)
		}
		return core.Table{}, "", fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.Table{}, "", core.ErrNoFile
	}
	defer file.Close()

	sheet := r.FormValue("sheet")
	if sheet == "" {
		sheet = chi.URLParam(r, "importType")
	}
	table, err := core.ReadTable(file, header.Filename, sheet)
	if err != nil {
		return core.Table{}, header.Filename, err
	}
	return table, header.Filename, nil
}

// runOptions reads import flags from the form, defaulting to config.
func (s *Server) runOptions(r *http.Request) core.RunOptions {
	opts := core.RunOptions{
		DryRun:           parseBoolForm(r, "dry_run", false),
		BatchSize:        s.cfg.Import.BatchSize,
		MaxBatchSize:     s.cfg.Import.MaxBatchSize,
		AutoCombinations: parseBoolForm(r, "auto_combinations", s.cfg.Import.AutoCombinations),
		StrictBooleans:   s.cfg.Import.StrictBooleans,
	}
	if v, err := strconv.Atoi(r.FormValue("batch_size")); err == nil && v > 0 {
		opts.BatchSize = min(v, s.cfg.Import.MaxBatchSize)
	}
	return opts
}

// parseIntParam parses a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func parseBoolForm(r *http.Request, name string, defaultVal bool) bool {
	v := r.FormValue(name)
	if v == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return core.ToBool(v)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}
