package lookup

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 503}).Temporary())
	assert.True(t, (&StatusError{StatusCode: 429}).Temporary())
	assert.False(t, (&StatusError{StatusCode: 404}).Temporary())

	assert.Equal(t, "annotation service error 500", (&StatusError{StatusCode: 500}).Error())
	assert.Equal(t, "annotation service error 400: bad query", (&StatusError{StatusCode: 400, Body: "bad query"}).Error())
}

func TestReason(t *testing.T) {
	assert.Equal(t, "no match", Reason(ErrNoHits))
	assert.Equal(t, "no match", Reason(fmt.Errorf("wrapped: %w", ErrNoMatch)))
	assert.Equal(t, "service returned 503", Reason(&StatusError{StatusCode: 503}))
	assert.Equal(t, "timed out", Reason(context.DeadlineExceeded))
	assert.Equal(t, "lookup failed", Reason(errors.New("connection refused")))
}
