package validation

import (
	"fmt"

	dErrors "schoolbridge/pkg/domain-errors"
)

// MaxBodySize is the maximum allowed JSON request body size (64 KB).
const MaxBodySize = 64 * 1024

// Slice element count limits
const (
	// MaxInvitationsPerBatch bounds a single bulk invitation request.
	MaxInvitationsPerBatch = 100

	// MaxStudentsPerRequest bounds enrolment changes on a class.
	MaxStudentsPerRequest = 200

	// MaxAttachments bounds attachment URLs on an assignment.
	MaxAttachments = 20
)

// String element length limits
const (
	MaxEmailLength        = 255
	MaxNameLength         = 200
	MaxRefreshTokenLength = 1024
	MaxAttachmentLength   = 2048
	MaxDescriptionLength  = 10_000
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if err := CheckStringLength(fieldName, v, max); err != nil {
			return err
		}
	}
	return nil
}
