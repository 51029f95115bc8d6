// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

const (
	// StageIdle indicates the pipeline was created but Start() not called.
	StageIdle Stage = iota
	// StageLoadModList discovers mods and persists the reconciled mod list.
	StageLoadModList
	// StageLoadDocuments reads the content files of enabled mods.
	StageLoadDocuments
	// StageParseDocuments parses the content files into document trees.
	StageParseDocuments
	// StageValidateDocuments merges, binds, validates and checksums content.
	StageValidateDocuments
	// StageReady is terminal: content is loaded and checksummed.
	StageReady
	// StageFaulted is terminal: a fatal error aborted the load.
	StageFaulted
)

// ErrInvalidStage is returned when a Stage value is not one of the defined stages.
var ErrInvalidStage = errors.New("invalid stage")

type (
	// Stage is one step of the load state machine.
	Stage int32

	// InvalidStageError is returned when a Stage value is not recognized.
	// It wraps ErrInvalidStage for errors.Is() compatibility.
	InvalidStageError struct {
		Value Stage
	}
)

// String returns a human-readable representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoadModList:
		return "load-mod-list"
	case StageLoadDocuments:
		return "load-documents"
	case StageParseDocuments:
		return "parse-documents"
	case StageValidateDocuments:
		return "validate-documents"
	case StageReady:
		return "ready"
	case StageFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Error implements the error interface for InvalidStageError.
func (e *InvalidStageError) Error() string {
	return fmt.Sprintf("invalid stage %d (valid: 0=idle .. 6=faulted)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidStageError) Unwrap() error {
	return ErrInvalidStage
}

// Validate returns nil if the Stage is one of the defined stages.
func (s Stage) Validate() error {
	if s < StageIdle || s > StageFaulted {
		return &InvalidStageError{Value: s}
	}
	return nil
}

// IsTerminal returns true for Ready and Faulted.
func (s Stage) IsTerminal() bool {
	return s == StageReady || s == StageFaulted
}
