// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/fang"

	"github.com/ironhull/modkit/internal/issue"
	"github.com/ironhull/modkit/internal/modreg"
	"github.com/ironhull/modkit/internal/pipeline"
	"github.com/ironhull/modkit/internal/specmerge"
	"github.com/ironhull/modkit/pkg/cueutil"
	"github.com/ironhull/modkit/pkg/walker"
)

// actionable wraps err with the operation that failed and, when the cause is
// a known domain error, the matching suggestions and issue catalog entry.
// Errors that are already actionable are returned unchanged.
func actionable(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ec := issue.NewErrorContext().WithOperation(operation).WithResource(resource).Wrap(err)
	var (
		dup     *specmerge.DuplicateIDError
		missing *pipeline.MissingDocumentError
		cueErr  *cueutil.ValidationError
	)
	switch {
	case errors.Is(err, modreg.ErrModsRootNotFound):
		ec.WithIssue(issue.ModsRootNotFoundId).
			WithSuggestion("Pass --mods-root or set mods_root in config.cue")
	case errors.As(err, &dup):
		ec.WithIssue(issue.DuplicateIDId).
			WithSuggestion(fmt.Sprintf("Rename %s or %s, or give one of them a different id", dup.Sources[0], dup.Sources[1]))
	case errors.As(err, &missing):
		ec.WithIssue(issue.MissingDocumentId)
		if missing.Invalid {
			ec.WithSuggestion(fmt.Sprintf("Fix the validation errors reported under %s.%s", missing.Category, missing.ID))
		} else {
			ec.WithSuggestion(fmt.Sprintf("Enable a mod that provides %s/%s", missing.Category, missing.ID))
		}
	case errors.Is(err, walker.ErrDuplicateKey):
		ec.WithIssue(issue.CategoryConflictId)
	case errors.Is(err, modreg.ErrUnknownMod):
		ec.WithIssue(issue.UnknownModId).
			WithSuggestion("Run 'modkit mods list' to see the mod folders")
	case errors.Is(err, modreg.ErrInvalidPosition):
		ec.WithSuggestion("Positions start at 0; run 'modkit mods list' to see the current order")
	case errors.As(err, &cueErr):
		ec.WithIssue(issue.ModListInvalidId).
			WithSuggestion("Fix " + cueErr.FilePath + " or delete it to rebuild the mod list")
	}
	return ec.BuildError()
}

// formatErrorForDisplay formats an error for user display. Actionable
// errors show their suggestions; in verbose mode the full error chain and
// the linked issue guidance are included.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return err.Error()
	}
	out := ae.Format(verbose)
	if verbose {
		if entry := ae.Issue(); entry != nil {
			if rendered, renderErr := entry.Render("notty"); renderErr == nil {
				out += "\n" + rendered
			}
		}
	}
	return out
}

// errorHandler is the fang error handler. Failures the command already
// reported (an ExitError without a cause) print nothing more.
func errorHandler(verbose *bool) fang.ErrorHandler {
	return func(w io.Writer, _ fang.Styles, err error) {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			return
		}
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, *verbose))
	}
}
