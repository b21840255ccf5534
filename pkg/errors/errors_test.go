package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestCloneMatchesPredefined(t *testing.T) {
	clone := Clone(ErrPayloadTooLarge, "File size exceeds maximum limit of 500MB")
	assert.True(t, stderrors.Is(clone, ErrPayloadTooLarge))
	assert.False(t, stderrors.Is(clone, ErrValidation))
	assert.Equal(t, "payload too large", ErrPayloadTooLarge.Message)
}

func TestWithFieldsCopiesSlice(t *testing.T) {
	fields := []string{"team_name"}
	appErr := WithFields(ErrValidation, "missing required fields", fields)
	fields[0] = "mutated"
	assert.Equal(t, []string{"team_name"}, appErr.Fields)
	assert.Nil(t, ErrValidation.Fields)
}

func TestWithCauseExposesDetails(t *testing.T) {
	appErr := WithCause(ErrUpstreamUnavailable, "Failed to generate upload URL", fmt.Errorf("AccessDenied: bucket policy"))
	assert.Equal(t, "AccessDenied: bucket policy", appErr.Details)
	assert.Contains(t, appErr.Error(), "Failed to generate upload URL")
	assert.Empty(t, ErrUpstreamUnavailable.Details)
}
