package code

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FourDigitRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		c := New()
		require.Len(t, c, 4)
		n, err := strconv.Atoi(c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}
