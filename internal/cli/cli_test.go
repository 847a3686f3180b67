package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_PrintSchema(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate", "--print"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		printSchema = false
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "resource_acl")
	assert.Contains(t, out.String(), "audit_logs")
}

func TestOpenDatabase_RequiresURL(t *testing.T) {
	_, err := openDatabase("")
	assert.ErrorContains(t, err, "DATABASE_URL")
}
