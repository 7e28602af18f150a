package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormsStore_SubmitAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.json")
	forms := NewFormsStore(path)
	now := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	answers := map[string]interface{}{"q1": "B", "q2": true}
	require.NoError(t, forms.Submit(4, "session-1", answers, now))

	reloaded := NewFormsStore(path)
	responses := reloaded.ForSlide(4)
	require.Contains(t, responses, "session-1")
	assert.Equal(t, "B", responses["session-1"].Answers["q1"])
	assert.True(t, responses["session-1"].Timestamp.Equal(now))
}

func TestFormsStore_LastWriteWinsPerSession(t *testing.T) {
	forms := NewFormsStore(filepath.Join(t.TempDir(), "forms.json"))
	now := time.Now()

	require.NoError(t, forms.Submit(1, "session-1", map[string]interface{}{"q1": "A"}, now))
	require.NoError(t, forms.Submit(1, "session-1", map[string]interface{}{"q1": "C"}, now.Add(time.Second)))
	require.NoError(t, forms.Submit(1, "session-2", map[string]interface{}{"q1": "B"}, now))

	responses := forms.ForSlide(1)
	assert.Len(t, responses, 2)
	assert.Equal(t, "C", responses["session-1"].Answers["q1"])
}

func TestFormsStore_Validation(t *testing.T) {
	forms := NewFormsStore(filepath.Join(t.TempDir(), "forms.json"))
	now := time.Now()

	err := forms.Submit(-1, "s", map[string]interface{}{"q": "A"}, now)
	assert.True(t, IsValidation(err))

	err = forms.Submit(1, "", map[string]interface{}{"q": "A"}, now)
	assert.True(t, IsValidation(err))

	err = forms.Submit(1, "s", nil, now)
	assert.True(t, IsValidation(err))
}

func TestFormsStore_ReadsAreCopies(t *testing.T) {
	forms := NewFormsStore(filepath.Join(t.TempDir(), "forms.json"))
	require.NoError(t, forms.Submit(1, "s", map[string]interface{}{"q": "A"}, time.Now()))

	responses := forms.ForSlide(1)
	responses["s"].Answers["q"] = "mutated"

	again := forms.ForSlide(1)
	assert.Equal(t, "A", again["s"].Answers["q"])
}

func TestFormsStore_CorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.json")
	require.NoError(t, os.WriteFile(path, []byte("no"), 0644))

	forms := NewFormsStore(path)
	assert.Empty(t, forms.ForSlide(1))
}
