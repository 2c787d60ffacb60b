package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const inventoryCSV = `AccountID,ResourceID,Service,Region,Department,Project,Environment,Owner,CostCenter,CreatedBy,MonthlyCostUSD,Tagged
1,r1,EC2,us-east-1,Eng,Apollo,prod,jdoe,CC1,terraform,100,Yes
1,r2,S3,us-east-1,,,,,,console,20,No
1,r3,EC2,eu-west-1,Finance,Ledger,dev,asmith,CC2,terraform,40,Yes
1,r4,RDS,us-east-1,Eng,,prod,,,console,60,No
1,r5,EC2,us-east-1,Eng,Apollo,dev,jdoe,CC1,console,10,No
`

func setupEnv(t *testing.T) string {
	t.Helper()
	for key, value := range map[string]string{
		"AUDIT_DRIVER":            "",
		"AUDIT_TABLE":             "",
		"LOG_LEVEL":               "error",
		"LOG_FORMAT":              "json",
		"REPAIR_TRAILING_COLUMNS": "",
		"LISTEN_ADDR":             "",
	} {
		t.Setenv(key, value)
	}
	return t.TempDir()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReportCommand(t *testing.T) {
	dir := setupEnv(t)
	input := writeFile(t, dir, "cloudmart.csv", inventoryCSV)

	out, err := run(t, "report", input, "--tagged", "No")
	require.NoError(t, err)

	var got reportOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, "cloudmart.csv", got.Source)
	assert.Equal(t, "No", got.Filters.Tagged)
	assert.Equal(t, 3, got.Matched)
	assert.Equal(t, 3, got.Report.Overview.Resources)
	assert.InDelta(t, 90.0, got.Report.TagSplit.UntaggedCost, 1e-9)
}

func TestReportCommand_RejectsBadFile(t *testing.T) {
	dir := setupEnv(t)
	input := writeFile(t, dir, "broken.csv", "ResourceID,Service\nr1,EC2\n")

	_, err := run(t, "report", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Schema")

	_, err = run(t, "report", filepath.Join(dir, "absent.csv"))
	assert.Error(t, err)
}

func TestRemediateCommand(t *testing.T) {
	dir := setupEnv(t)
	input := writeFile(t, dir, "cloudmart.csv", inventoryCSV)
	edits := writeFile(t, dir, "edits.yaml", `
- resource_id: r4
  column: Project
  value: Hermes
- resource_id: r4
  column: Owner
  value: bob
- row: 0
  column: Owner
  value: someone
`)
	outPath := filepath.Join(dir, "cloudmart_remediated.csv")

	out, err := run(t, "remediate", input, "--edits", edits, "--out", outPath)
	require.NoError(t, err)

	var got struct {
		Proposed int `yaml:"proposed"`
		Apply    struct {
			Applied    int   `yaml:"applied"`
			Changed    int   `yaml:"changed"`
			TaggedRows []int `yaml:"tagged_rows"`
			Rejected   []struct {
				Reason string `yaml:"reason"`
			} `yaml:"rejected"`
		} `yaml:"apply"`
		Compare struct {
			Remediated int `yaml:"remediated"`
		} `yaml:"compare"`
		Export string `yaml:"export"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got), out)
	assert.Equal(t, 3, got.Proposed)
	assert.Equal(t, 2, got.Apply.Applied)
	assert.Equal(t, 1, got.Apply.Changed)
	assert.Equal(t, []int{3}, got.Apply.TaggedRows)
	require.Len(t, got.Apply.Rejected, 1)
	assert.Equal(t, "row_not_untagged", got.Apply.Rejected[0].Reason)
	assert.Equal(t, 1, got.Compare.Remediated)
	assert.Equal(t, outPath, got.Export)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "1,r4,RDS,us-east-1,Eng,Hermes,prod,bob,,console,60,Yes\n")
}

func TestRemediateCommand_MetricsReport(t *testing.T) {
	dir := setupEnv(t)
	input := writeFile(t, dir, "cloudmart.csv", inventoryCSV)
	edits := writeFile(t, dir, "edits.yaml", "- resource_id: r2\n  column: Owner\n  value: bob\n- row: 1\n  value: x\n")

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"remediate", input, "--edits", edits, "--metrics-report"})
	require.NoError(t, cmd.Execute())

	report := stderr.String()
	assert.Contains(t, report, "Remediation Metrics Report")
	assert.Contains(t, report, "Rows Loaded:             5")
	assert.Contains(t, report, "Edits Accepted:          1 (50.0%)")
	assert.Contains(t, report, "Edits Rejected:          1 (50.0%)")
	assert.NotContains(t, stdout.String(), "Remediation Metrics Report")
}

func TestRemediateCommand_RequiresEdits(t *testing.T) {
	dir := setupEnv(t)
	input := writeFile(t, dir, "cloudmart.csv", inventoryCSV)

	_, err := run(t, "remediate", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edits")
}

func TestReadEdits(t *testing.T) {
	dir := t.TempDir()

	wrapped := writeFile(t, dir, "wrapped.yaml", "edits:\n  - row: 1\n    column: Department\n    value: Eng\n")
	edits, err := readEdits(wrapped)
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, 1, edits[0].Row)
	assert.Equal(t, "Department", edits[0].Column)

	// an edit without a column is left for the session to reject
	missingColumn := writeFile(t, dir, "missing.yaml", "- row: 1\n  value: Eng\n- row: 1\n  column: Owner\n  value: bob\n")
	edits, err = readEdits(missingColumn)
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.Empty(t, edits[0].Column)
	assert.Equal(t, "Owner", edits[1].Column)

	garbage := writeFile(t, dir, "garbage.yaml", "edits: [unterminated\n")
	_, err = readEdits(garbage)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = newLogger("loud", "json")
	assert.Error(t, err)
}
