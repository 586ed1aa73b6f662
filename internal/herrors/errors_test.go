package herrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"helix/internal/herrors"
)

func TestFatal_ErrorMessageOmitsWrappedErrWhenNil(t *testing.T) {
	fe := herrors.Fatal(herrors.SeqGap, "gap at seq 5")
	assert.Equal(t, "fatal[seq_gap]: gap at seq 5", fe.Error())
	assert.Nil(t, fe.Unwrap())
}

func TestFatalf_WrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("disk full")
	fe := herrors.Fatalf(herrors.IOFailure, "writing fills.csv", underlying)

	assert.Contains(t, fe.Error(), "fatal[io_failure]")
	assert.Contains(t, fe.Error(), "disk full")
	assert.Equal(t, underlying, fe.Unwrap())
	assert.True(t, errors.Is(fe, underlying))
}
