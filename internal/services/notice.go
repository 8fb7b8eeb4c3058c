package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/persist"
)

// Notice is the message shown to the user after a save, or "" when the
// save went through untouched.
func Notice(out persist.Outcome) string {
	switch out.Status {
	case persist.StatusDegraded:
		steps := make([]string, len(out.Steps))
		for i, st := range out.Steps {
			steps[i] = stepText(st)
		}
		return "Local storage is full: " + strings.Join(steps, ", then ") + " to make room."
	case persist.StatusSyncQuotaExceeded:
		return "Sync disabled: the page is too large for synced storage. Saved on this device only."
	case persist.StatusSyncRejected:
		return "Sync disabled: synced storage refused the write. Saved on this device only."
	case persist.StatusFailed:
		return "Save failed: " + errText(out.Err)
	default:
		return ""
	}
}

// ErrorNotice turns an operation error into a user message.
func ErrorNotice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, common.ErrMalformedImport):
		return "Import failed: malformed payload (" + errText(err) + ")."
	case errors.Is(err, common.ErrInvalidURL):
		return "Invalid URL: " + errText(err) + "."
	case errors.Is(err, common.ErrLastGroup):
		return "The last group cannot be deleted."
	case errors.Is(err, common.ErrNotFound):
		return "Not found: " + errText(err) + "."
	case errors.Is(err, common.ErrStorageUnavailable):
		return "Storage is unavailable."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func stepText(st persist.Step) string {
	switch st {
	case persist.StepClearBackups:
		return "backups were cleared"
	case persist.StepRevertUploadedIcons:
		return "uploaded icons were reset"
	case persist.StepDropUploadedBackground:
		return "the uploaded background was removed"
	default:
		return string(st)
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
