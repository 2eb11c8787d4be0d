package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToAndDeref(t *testing.T) {
	v := 42
	p := To(v)
	v = 7

	assert.Equal(t, 42, *p)
	assert.Equal(t, 42, Deref(p, 0))
	assert.Equal(t, "fallback", Deref[string](nil, "fallback"))
}
