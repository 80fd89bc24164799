package localization

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetString_FallsBackToEnglishThenKey(t *testing.T) {
	l, err := NewLocalizer(fstest.MapFS{
		"en.json":   {Data: []byte(`{"greeting": "Hello", "only_en": "English only"}`)},
		"ar.json":   {Data: []byte(`{"greeting": "مرحبا"}`)},
		"notes.txt": {Data: []byte("ignored")},
	})
	require.NoError(t, err)

	assert.Equal(t, "مرحبا", l.GetString("ar", "greeting"))
	assert.Equal(t, "English only", l.GetString("ar", "only_en"))
	assert.Equal(t, "Hello", l.GetString("fr", "greeting"))
	assert.Equal(t, "missing", l.GetString("en", "missing"))
	assert.ElementsMatch(t, []string{"en", "ar"}, l.Languages())
}

func TestNewLocalizer_BadJSON(t *testing.T) {
	_, err := NewLocalizer(fstest.MapFS{"en.json": {Data: []byte(`{`)}})
	assert.Error(t, err)
}

func TestDefault_NotificationTexts(t *testing.T) {
	l, err := Default()
	require.NoError(t, err)

	body := l.Format("en", "request_received.body", map[string]string{"name": "Yusuf"})
	assert.Equal(t, "Yusuf has sent you a marriage request.", body)

	// Arabic is missing the unknown command text and falls back to English.
	assert.Equal(t, l.GetString("en", "telegram.unknown_command"), l.GetString("ar", "telegram.unknown_command"))
	assert.NotEqual(t, "request_received.title", l.GetString("ar", "request_received.title"))
}
