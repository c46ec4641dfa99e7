package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNotificationIDIsV7(t *testing.T) {
	id := NewNotificationID()
	assert.Equal(t, 7, int(id.Version()))
	assert.NotEqual(t, id, NewNotificationID())
}

func TestNewConnIDUnique(t *testing.T) {
	a, b := NewConnID(), NewConnID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
