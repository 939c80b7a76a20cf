package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoteCmd_RejectsExtraArgs(t *testing.T) {
	// Given: promote invoked with two version ids
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"promote", "v-1", "v-2"})

	err := cmd.Execute()

	// Then: cobra rejects the extra argument
	require.Error(t, err)
}

func TestPromoteCmd_EmptyCatalog_Fails(t *testing.T) {
	// Given: an empty catalog, so nothing is READY
	restore := seedMemoryProject(t)
	defer restore()

	// When: promoting without a version id
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"promote"})

	err := cmd.Execute()

	// Then: the command fails and explains what to do next
	require.Error(t, err)
	output := buf.String()
	assert.Contains(t, output, "No READY version")
	assert.Contains(t, output, "kbmcp index --wait")
}

func TestPromoteCmd_UnknownVersion_Fails(t *testing.T) {
	// Given: an empty catalog
	restore := seedMemoryProject(t)
	defer restore()

	// When: promoting a version that does not exist
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"promote", "v-nope"})

	err := cmd.Execute()

	// Then: the command fails
	require.Error(t, err)
}
