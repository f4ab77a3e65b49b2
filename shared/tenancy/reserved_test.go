package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservedSetMembership(t *testing.T) {
	set := NewReservedSet([]string{"www", "App", " api ", "admin"})

	assert.True(t, set.Contains("www"))
	assert.True(t, set.Contains("WWW"))
	assert.True(t, set.Contains("app"))
	assert.True(t, set.Contains("api"))
	assert.True(t, set.Contains("Admin"))

	assert.False(t, set.Contains("acme"))
	assert.False(t, set.Contains(""))
	assert.False(t, set.Contains("www2"))
}
