package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/storedoctor/pkg/model"
)

func executeCommand(root *cobra.Command, args ...string) (stdout string, err error) {
	// Capture os.Stdout since commands print with fmt directly
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	root.SetArgs(args)
	err = root.Execute()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), err
}

func createTestRootCmd() *cobra.Command {
	jsonOutput = false
	configPath, storeFlag, backendFlag, logLevel = "", "", "", ""
	noColor = false
	sweepOffline, sweepSkipHealth, sweepProgress = false, false, false
	configInitForce = false
	auditPath = ""

	cmd := &cobra.Command{
		Use:           "storedoctor",
		Short:         "storedoctor - data-integrity sweeps for a JSON key-value store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addGlobalFlags(cmd)
	cmd.AddCommand(sweepCmd, historyCmd, statusCmd, storeCmd, configCmd, auditCmd)
	return cmd
}

// testEnv is a scratch directory holding a config file and a file store.
type testEnv struct {
	dir    string
	config string
	store  string
}

func newTestEnv(t *testing.T) *testEnv {
	dir := t.TempDir()
	return &testEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		store:  filepath.Join(dir, "store.json"),
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	base := []string{"--config", e.config, "--store", e.store, "--backend", "file", "--no-color", "--log-level", "error"}
	return executeCommand(createTestRootCmd(), append(base, args...)...)
}

func (e *testEnv) seed(t *testing.T, data map[string]string) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.store, raw, 0600))
}

func (e *testEnv) writeConfig(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(e.config, []byte(body), 0644))
}

func TestRootCommand_Help(t *testing.T) {
	stdout, err := executeCommand(createTestRootCmd(), "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "data-integrity sweeps")
}

func TestRootCommand_JSONFlag(t *testing.T) {
	cmd := createTestRootCmd()
	_, err := executeCommand(cmd, "--json", "--help")
	require.NoError(t, err)
	assert.True(t, jsonOutput)
}

func TestSweepCommand_RepairsStore(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{
		"tasks":          `[{"id":"a","title":"read"}]`,
		"studyhub-notes": `{not json`,
		"stray-key":      `1`,
	})

	stdout, err := env.run(t, "sweep", "--offline")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Health score:")
	assert.Contains(t, stdout, "[fixed]")

	value, err := env.run(t, "store", "get", "studyhub-tasks")
	require.NoError(t, err)
	assert.Contains(t, value, `"read"`)

	_, err = env.run(t, "store", "get", "tasks")
	assert.Error(t, err)
	_, err = env.run(t, "store", "get", "stray-key")
	assert.Error(t, err)

	value, err = env.run(t, "store", "get", "studyhub-notes")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", value)
}

func TestSweepCommand_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{"studyhub-theme": `"dark"`})

	stdout, err := env.run(t, "--json", "sweep", "--offline")
	require.NoError(t, err)

	var report model.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.NotEmpty(t, report.SweepID)
	assert.NotEmpty(t, report.Actions)
	assert.NotNil(t, report.Storage)
	assert.LessOrEqual(t, report.Record.Score, 100)
}

func TestSweepCommand_SkipHealthLeavesFlagsAlone(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{"studyhub-theme": `"dark"`})

	_, err := env.run(t, "sweep", "--skip-health")
	require.NoError(t, err)

	_, err = env.run(t, "store", "get", "studyhub-tutor-offline")
	assert.Error(t, err)
}

func TestSweepCommand_CorruptStore(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.store, []byte("{broken"), 0600))

	_, err := env.run(t, "sweep", "--offline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_STORE_CORRUPT")
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)

	stdout, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No sweeps recorded yet.")

	for i := 0; i < 2; i++ {
		_, err = env.run(t, "sweep", "--offline")
		require.NoError(t, err)
	}

	stdout, err = env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SCORE")

	stdout, err = env.run(t, "--json", "history")
	require.NoError(t, err)
	var records []model.SweepRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 2)
	assert.False(t, records[0].Timestamp.Before(records[1].Timestamp))
}

func TestStatusCommand(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, map[string]string{"studyhub-theme": `"dark"`})

	stdout, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Store:")
	assert.Contains(t, stdout, "Last sweep: never")

	_, err = env.run(t, "sweep", "--offline")
	require.NoError(t, err)

	stdout, err = env.run(t, "--json", "status")
	require.NoError(t, err)
	var res statusResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.Equal(t, "file", res.Backend)
	require.NotNil(t, res.LastSweep)
	require.NotNil(t, res.Storage)
	assert.Greater(t, res.Storage.KeyCount, 0)
	assert.ElementsMatch(t, []string{"sync", "tutor"}, res.Offline)
}

func TestStoreCommands(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "store", "set", "studyhub-theme", `"light"`)
	require.NoError(t, err)

	stdout, err := env.run(t, "store", "get", "studyhub-theme")
	require.NoError(t, err)
	assert.Equal(t, "\"light\"\n", stdout)

	stdout, err = env.run(t, "store", "keys")
	require.NoError(t, err)
	assert.Contains(t, stdout, "studyhub-theme")

	_, err = env.run(t, "store", "delete", "studyhub-theme")
	require.NoError(t, err)

	_, err = env.run(t, "store", "get", "studyhub-theme")
	assert.Error(t, err)

	_, err = env.run(t, "store", "set", "", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_KEY_INVALID")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	stdout, err := env.run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, env.config)
	assert.FileExists(t, env.config)

	_, err = env.run(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = env.run(t, "config", "init", "--force")
	require.NoError(t, err)

	stdout, err = env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "capacity_bytes")
	assert.Contains(t, stdout, env.store)
}

func TestConfig_UnknownServiceRejected(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "services:\n  - name: weather\n")

	_, err := env.run(t, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E_SERVICE_UNKNOWN")
}

func TestAuditCommand_VerifiesSweepLog(t *testing.T) {
	env := newTestEnv(t)
	logPath := filepath.Join(env.dir, "audit.jsonl")
	env.writeConfig(t, "audit:\n  path: "+logPath+"\n")

	stdout, err := env.run(t, "audit", "verify")
	require.NoError(t, err)
	assert.Contains(t, stdout, "0 record(s)")

	_, err = env.run(t, "sweep", "--offline")
	require.NoError(t, err)

	stdout, err = env.run(t, "audit", "verify")
	require.NoError(t, err)
	assert.Contains(t, stdout, "verified")

	stdout, err = env.run(t, "--json", "audit", "verify", "--path", logPath)
	require.NoError(t, err)
	var res struct {
		Records int  `json:"records"`
		OK      bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.True(t, res.OK)
	assert.Greater(t, res.Records, 0)
}

func TestAuditCommand_NoPathConfigured(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "audit", "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audit log configured")
}
