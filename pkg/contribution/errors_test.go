package contribution

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sudao/sudao/pkg/protocol"
)

func TestStepError_Matching(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := classify(StepQuote, &protocol.TransportError{Op: "quote", Err: cause})

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRemoteRejection)
	assert.Equal(t, StepQuote, err.Step)
	assert.Equal(t, "contribution step 2 (quote) failed [transport]: quote transport failure: connection reset", err.Error())
}
