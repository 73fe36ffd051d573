package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorage_KeepsCauseReachable(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Storage(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "storage failure: pq: connection refused", err.Error())
}

func TestStorage_CauseNeverSerialized(t *testing.T) {
	raw, err := json.Marshal(Storage(errors.New("host=10.0.0.3 password=hunter2")))
	assert.NoError(t, err)
	assert.Equal(t, `{"code":"STORAGE_ERROR","detail":"storage failure"}`, string(raw))
}

func TestAs_UnwrapsThroughWrapping(t *testing.T) {
	inner := ShiftConflict("shift already open", "s1", "r1")
	wrapped := fmt.Errorf("opening shift: %w", inner)

	e, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeShiftConflict, e.Code)
	assert.Equal(t, "s1", e.Meta["shift_id"])
}

func TestHTTPStatus_ShiftConflictMapsToConflict(t *testing.T) {
	assert.Equal(t, 409, HTTPStatus(CodeShiftConflict))
	assert.Equal(t, 500, HTTPStatus(CodeStorage))
	assert.Equal(t, 429, HTTPStatus(CodeRateLimited))
}
