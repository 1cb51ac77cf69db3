package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// go test -v --run TestCachectlRoundTrip
func TestCachectlRoundTrip(t *testing.T) {
	dir := t.TempDir()
	common := []string{"--backend", "file", "--path", dir, "--namespace", "cachectl_test"}

	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"token_chart_0xabc":[{"date":86400}],"other":1}`), 0o644))

	out, err := run(t, append([]string{"import", in}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 keys")

	out, err = run(t, append([]string{"keys"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "token_chart_0xabc"}, strings.Fields(out))

	out, err = run(t, append([]string{"get", "other"}, common...)...)
	require.NoError(t, err)
	assert.Equal(t, "1", strings.TrimSpace(out))

	_, err = run(t, append([]string{"remove", "other"}, common...)...)
	require.NoError(t, err)

	exported := filepath.Join(dir, "out.json")
	_, err = run(t, append([]string{"export", "--out", exported}, common...)...)
	require.NoError(t, err)
	blob, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token_chart_0xabc":[{"date":86400}]}`, string(blob))

	_, err = run(t, append([]string{"get", "other"}, common...)...)
	assert.Error(t, err)
}
