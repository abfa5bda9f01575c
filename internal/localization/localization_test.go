package localization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString(t *testing.T) {
	l, err := NewLocalizer()
	require.NoError(t, err)

	assert.Equal(t, "You have a new message", l.GetString("en", "NEW_CHAT_MESSAGE"))
	assert.Equal(t, "Vous avez un nouveau message", l.GetString("fr", "NEW_CHAT_MESSAGE"))

	// Unknown language falls back to English.
	assert.Equal(t, "You have a new message", l.GetString("de", "NEW_CHAT_MESSAGE"))

	// Unknown key falls back to the key itself.
	assert.Equal(t, "NO_SUCH_KEY", l.GetString("en", "NO_SUCH_KEY"))
}
