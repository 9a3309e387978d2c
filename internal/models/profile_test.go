package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProductProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acme.yaml")
	err := os.WriteFile(path, []byte(`
name: acme-crm
product: "Acme CRM, a pipeline tracker for small sales teams"
target: 15
icp:
  company_size: "10-200"
  region: "APAC"
`), 0644)
	require.NoError(t, err)

	profile, err := LoadProductProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "acme-crm", profile.Name)
	assert.Equal(t, 15, profile.Target)
	assert.Equal(t, "APAC", profile.ICP["region"])

	req := profile.ToRequest()
	assert.Equal(t, profile.Product, req.Product)
	assert.Equal(t, 15, req.Target)
}

func TestLoadProductProfile_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.yaml")
	err := os.WriteFile(path, []byte(`product: "A developer tool for tracing distributed systems"`), 0644)
	require.NoError(t, err)

	profile, err := LoadProductProfile(path)
	require.NoError(t, err)

	assert.Equal(t, 10, profile.Target, "target defaults to 10")
	assert.NotEmpty(t, profile.Name, "name defaults from path")
}

func TestLoadProductProfile_Errors(t *testing.T) {
	_, err := LoadProductProfile("/does/not/exist.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`target: 5`), 0644))

	_, err = LoadProductProfile(path)
	assert.Error(t, err, "missing product description must be rejected")
}

func TestEventIsTerminal(t *testing.T) {
	assert.True(t, (&Event{Type: EventCompleted}).IsTerminal())
	assert.True(t, (&Event{Type: EventCancelled}).IsTerminal())
	assert.True(t, (&Event{Type: EventError}).IsTerminal())
	assert.False(t, (&Event{Type: EventLeadBatch}).IsTerminal())
	assert.False(t, (&Event{Type: EventThought}).IsTerminal())
}
