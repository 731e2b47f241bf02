package ndoracle_test

import (
	"testing"

	"github.com/ndproxy6/ndppd/internal/ndaddr"
	"github.com/ndproxy6/ndppd/internal/ndoracle"
	"github.com/stretchr/testify/assert"
)

func TestEmpty(t *testing.T) {
	var o ndoracle.Interface = ndoracle.Empty{}

	assert.NoError(t, o.Refresh())
	assert.False(t, o.IsLocal(ndaddr.MustParseAddress("2001:db8::1")))

	name, ok := o.RouteIface(ndaddr.MustParseAddress("2001:db8::1"))
	assert.False(t, ok)
	assert.Empty(t, name)
}
