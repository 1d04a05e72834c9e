package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseInt(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"87", "87"},
		{"0xff", "255"},
		{"0b101", "5"},
		{"2^10", "1024"},
		{"2^10-1", "1023"},
		{"2^255 - 19", new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(19)).String()},
		{"3*2^4+1", "49"},
		{"-5", "-5"},
		{"+7", "7"},
	}
	for _, tc := range testCases {
		got, err := parseInt(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got.String(), tc.in)
	}

	for _, bad := range []string{"", "abc", "2^", "2^-1", "1+", "2^99999999", "1--2"} {
		_, err := parseInt(bad)
		assert.Error(t, err, bad)
	}
}

func TestSearchCommand(t *testing.T) {
	out, err := run(t, "search", "2^64+1")
	require.NoError(t, err)
	assert.Contains(t, out, "target:      18446744073709551617")
	assert.Contains(t, out, "length:      65")
	assert.Contains(t, out, "fingerprint: ")
}

func TestSearchCommandJSON(t *testing.T) {
	out, err := run(t, "search", "-o", "json", "1000")
	require.NoError(t, err)

	var report searchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "1000", report.Target)
	assert.Equal(t, "1000", report.Chain[len(report.Chain)-1])
	assert.Equal(t, report.Length, len(report.Steps))
	assert.Equal(t, report.Length, report.Doubles+report.Adds)
	assert.Len(t, report.Fingerprint, 64)
}

func TestSearchCommandMetrics(t *testing.T) {
	out, err := run(t, "search", "--metrics", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, `addchain_searches_total{result="complete"} 1`)
	assert.Contains(t, out, "addchain_search_nodes_count 1")
}

func TestSearchCommandErrors(t *testing.T) {
	_, err := run(t, "search", "0")
	assert.Error(t, err)

	_, err = run(t, "search", "--window", "9", "1000")
	assert.Error(t, err)

	_, err = run(t, "search", "--log-level", "loud", "1000")
	assert.Error(t, err)

	_, err = run(t, "search", "-o", "xml", "1000")
	assert.Error(t, err)
}

func TestStepsCommand(t *testing.T) {
	out, err := run(t, "steps", "1", "2", "3", "6", "7", "10", "20", "40", "80", "87")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.Contains(t, lines[0], "Double(0)")
	assert.Contains(t, lines[8], "Add(8,4)")
	assert.True(t, strings.HasSuffix(lines[8], "87"))

	out, err = run(t, "steps", "-o", "yaml", "1", "2", "3")
	require.NoError(t, err)
	var report stepsReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, []string{"Double(0)", "Add(1,0)"}, report.Steps)
	assert.Equal(t, 1, report.Doubles)

	_, err = run(t, "steps", "1", "4", "8")
	assert.Error(t, err)
}

func TestTableAndBoundCommands(t *testing.T) {
	out, err := run(t, "table")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 127)
	assert.True(t, strings.HasPrefix(lines[6], "   7   4  1 2 "), lines[6])
	assert.True(t, strings.HasSuffix(lines[6], " 7"), lines[6])

	out, err = run(t, "bound", "2^256-1")
	require.NoError(t, err)
	assert.Equal(t, "262\n", out)

	_, err = run(t, "bound", "-3")
	assert.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addchain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: json\nmax-nodes: 0\n"), 0o600))

	out, err := run(t, "--config", path, "search", "1000")
	require.NoError(t, err)

	var report searchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, report.Greedy, report.Length)
	assert.False(t, report.Truncated)
}
