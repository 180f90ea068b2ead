package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/preslavrachev/cloudkit/document"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // query or backend failure
	ExitCommandError = 2 // invalid input: missing files, bad query definitions
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Success outputs data in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Table outputs rows under header; JSON output gets one object per row.
func (f *OutputFormatter) Table(header []string, rows [][]any) error {
	if f.Format == "json" {
		objects := make([]map[string]any, len(rows))
		for i, row := range rows {
			obj := make(map[string]any, len(header))
			for j, col := range header {
				obj[col] = row[j]
			}
			objects[i] = obj
		}
		return f.Success(objects)
	}

	w := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				v = ""
			}
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

// Documents outputs query results, one column per field
func (f *OutputFormatter) Documents(docs []document.Document) error {
	var header []string
	for _, doc := range docs {
		for field := range doc.Fields {
			if !slices.Contains(header, field) {
				header = append(header, field)
			}
		}
	}
	slices.Sort(header)

	rows := make([][]any, len(docs))
	for i, doc := range docs {
		row := make([]any, len(header))
		for j, field := range header {
			row[j] = doc.Fields[field]
		}
		rows[i] = row
	}
	return f.Table(header, rows)
}
