// internal/apperr/apperr_test.go

package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorNamesHostAndField(t *testing.T) {
	err := Config("ran_server", "user", "missing required field")
	assert.Contains(t, err.Error(), "ran_server")
	assert.Contains(t, err.Error(), "user")
	assert.True(t, IsKind(err, KindConfig))
	assert.False(t, IsKind(err, KindConnection))
}

func TestConnectionErrorStages(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	proxyErr := Connection("edge0", StageProxy, "jump host gateway unreachable", cause)
	targetErr := Connection("edge0", StageTarget, "failed to connect", cause)

	assert.Equal(t, StageProxy, proxyErr.Stage)
	assert.Equal(t, StageTarget, targetErr.Stage)
	assert.ErrorIs(t, proxyErr, cause)
}

func TestWrappedKindSurvivesChain(t *testing.T) {
	inner := Dispatch("edge0", "dispatched but pid sentinel was not numeric", errors.New("invalid pid"))
	wrapped := fmt.Errorf("batch: %w", inner)
	assert.True(t, IsKind(wrapped, KindDispatch))

	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, "edge0", e.Host)
}
