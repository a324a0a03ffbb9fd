package artifact

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMalformedArtifactError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := NewMalformedError("extension", "/a.extension", "invalid JSON", cause)

	assert.Equal(t, "MALFORMED_ARTIFACT: extension /a.extension: invalid JSON: unexpected end of JSON input", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeMalformed, err.Code())
}

func TestIsMalformed_Wrapped(t *testing.T) {
	err := fmt.Errorf("parse: %w", NewMalformedError("job", "/j.job", "", nil))
	assert.True(t, IsMalformed(err))
	assert.False(t, IsMalformed(errors.New("other")))
}

func TestAsMalformed(t *testing.T) {
	existing := NewMalformedError("job", "/j.job", "bad cron", nil)
	assert.Same(t, existing, AsMalformed("other", "/x", fmt.Errorf("wrap: %w", existing)))

	converted := AsMalformed("job", "/k.job", errors.New("boom"))
	assert.Equal(t, "job", converted.Kind)
	assert.Equal(t, "/k.job", converted.Location)
}
