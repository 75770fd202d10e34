package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const league = `
epoch: 2024-01-01T00:00:00Z
players:
  - name: alice
  - name: bob
    rating: 1400
    deviation: 30
  - name: carol
    rating: 1550
    deviation: 100
  - name: dave
    rating: 1700
    deviation: 300
    joined: 2024-01-01T00:05:00Z
matches:
  - {id: m1, a: alice, b: bob, result: win, at: 2024-01-01T00:10:00Z}
  - {id: m2, a: alice, b: carol, result: loss, at: 2024-01-01T00:20:00Z}
  - {id: m3, a: alice, b: dave, result: loss, at: 2024-01-01T00:30:00Z}
  - {id: m3, a: alice, b: dave, result: loss, at: 2024-01-01T00:30:00Z}
  - {a: bob, b: carol, result: draw, at: 2024-01-01T01:30:00Z}
`

func writeHistory(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GLICKO2_RATING_PERIOD_SECONDS", "3600")
	t.Setenv("GLICKO2_CONFIG", "")
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReplayMissingHistoryFlag(t *testing.T) {
	_, err := execute(t, "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayInvalidFormat(t *testing.T) {
	_, err := execute(t, "replay", "--history", writeHistory(t, league), "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestReplayJSON(t *testing.T) {
	out, err := execute(t, "replay", "--history", writeHistory(t, league), "--format", "json", "--workers", "3")
	require.NoError(t, err)

	var result ReplayResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, 4, result.Players)
	assert.Equal(t, 5, result.Matches)
	assert.Equal(t, int64(4), result.Applied)
	assert.Equal(t, int64(0), result.Failed)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, int64(1), result.PeriodsClosed)
	require.Len(t, result.Standings, 4)

	byName := make(map[string]StandingRow)
	for i, s := range result.Standings {
		byName[s.Name] = s
		if i > 0 {
			assert.GreaterOrEqual(t, result.Standings[i-1].Rating, s.Rating)
		}
	}
	// The draw at 01:30 sits in the open period ending at 02:00.
	assert.Equal(t, 1, byName["bob"].Pending)
	assert.Equal(t, 1, byName["carol"].Pending)
	assert.Equal(t, 0, byName["alice"].Pending)
	assert.Greater(t, byName["dave"].Rating, 1700.0)
	assert.Less(t, byName["dave"].Deviation, 300.0)
}

func TestReplayAtBeforeGames(t *testing.T) {
	out, err := execute(t, "replay", "--history", writeHistory(t, league), "--format", "json", "--at", "2024-01-01T00:00:00Z")
	require.NoError(t, err)

	var result ReplayResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, int64(0), result.PeriodsClosed)
	for _, s := range result.Standings {
		assert.Equal(t, 0, s.Pending)
	}
	assert.Equal(t, "dave", result.Standings[0].Name)
}

func TestReplayText(t *testing.T) {
	metricsPath := filepath.Join(t.TempDir(), "glicko2.prom")
	out, err := execute(t, "replay", "--history", writeHistory(t, league), "--top", "2", "--metrics-out", metricsPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Standings at 2024-01-01T01:30:00Z")
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "duplicates=1")
	assert.Equal(t, 2+4, strings.Count(out, "\n"))

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "glicko2_engine_results_registered_total")
}

func TestReplayMissingFile(t *testing.T) {
	_, err := execute(t, "replay", "--history", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open history")
}

func TestGenerateThenReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.yaml")
	out, err := execute(t, "generate", "--players", "16", "--matches", "1500", "--periods", "6", "--period", "1h", "--seed", "11", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 16 players and 1500 matches")

	out, err = execute(t, "replay", "--history", path, "--format", "json", "--workers", "4")
	require.NoError(t, err)

	var result ReplayResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, int64(1500), result.Applied)
	assert.Equal(t, int64(0), result.Failed)
	assert.Len(t, result.Standings, 16)
	require.NotNil(t, result.Agreement)
	assert.Greater(t, *result.Agreement, 0.7)
}

func TestReplayDefaultIsRepeatable(t *testing.T) {
	workers := NewReplayCommand(&RootOptions{}).Flags().Lookup("workers")
	require.NotNil(t, workers)
	assert.Equal(t, "1", workers.DefValue)

	path := filepath.Join(t.TempDir(), "league.yaml")
	_, err := execute(t, "generate", "--players", "8", "--matches", "400", "--periods", "3", "--period", "1h", "--seed", "5", "--out", path)
	require.NoError(t, err)

	first, err := execute(t, "replay", "--history", path, "--format", "json")
	require.NoError(t, err)
	second, err := execute(t, "replay", "--history", path, "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, first, second)
}

func TestGenerateToStdout(t *testing.T) {
	out, err := execute(t, "generate", "--players", "3", "--matches", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "players:")
	assert.Contains(t, out, "strength:")
	assert.Equal(t, 2, strings.Count(out, "result:"))
}

func TestGenerateInvalid(t *testing.T) {
	_, err := execute(t, "generate", "--players", "1")
	require.Error(t, err)

	_, err = execute(t, "generate", "--start", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse --start")
}
