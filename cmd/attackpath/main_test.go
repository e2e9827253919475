package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-attackpath/pkg/topology"
)

const plant = `
nodes:
  - {id: uplink, type: NetworkInterface, name: Internet uplink, zone: external}
  - {id: hmi, type: Component, name: Operator HMI, criticality: high}
  - {id: scada, type: Component, name: SCADA server, criticality: critical}
edges:
  - {from: uplink, to: hmi, type: CONNECTS_TO, protocol: HTTPS}
  - {from: hmi, to: scada, type: CONNECTS_TO, protocol: SMTP}
vulnerabilities:
  - {id: CVE-2021-0001, cvss_score: 9.8, affects: [scada]}
  - {id: CVE-2021-0002, cvss_score: 6.5, affects: [hmi]}
`

type cliResult struct {
	RequestID string `json:"request_id"`
	Operation string `json:"operation"`
	Paths     []struct {
		Hops      int     `json:"hops"`
		CVSSScore float64 `json:"cvss_score"`
		RiskScore float64 `json:"risk_score"`
		Nodes     []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		ProtocolCompliant bool `json:"protocol_compliant"`
	} `json:"paths"`
	Report struct {
		TotalPaths int `json:"total_paths"`
	} `json:"report"`
}

// setup isolates the working directory and writes the topology document.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "plant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(plant), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func decode(t *testing.T, out string) cliResult {
	t.Helper()
	var res cliResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "attackpath dev\n", out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestAnalyzeCommand(t *testing.T) {
	topo := setup(t)

	out, err := execute(t, "analyze", "-t", topo, "--source", "zone:external", "--target", "criticality:critical")
	require.NoError(t, err)

	res := decode(t, out)
	assert.Equal(t, "analyze", res.Operation)
	assert.NotEmpty(t, res.RequestID)
	require.Len(t, res.Paths, 1)

	p := res.Paths[0]
	assert.Equal(t, 2, p.Hops)
	require.Len(t, p.Nodes, 3)
	assert.Equal(t, "uplink", p.Nodes[0].ID)
	assert.Equal(t, "scada", p.Nodes[2].ID)
	assert.InDelta(t, 8.15, p.CVSSScore, 1e-9)
	assert.False(t, p.ProtocolCompliant, "SMTP is not an allowed protocol")
	assert.Equal(t, 1, res.Report.TotalPaths)
}

func TestSeverityCommand(t *testing.T) {
	topo := setup(t)

	out, err := execute(t, "severity", "-t", topo, "--min-cvss", "9")
	require.NoError(t, err)
	res := decode(t, out)
	assert.Equal(t, "analyze_by_severity", res.Operation)
	require.Len(t, res.Paths, 1)
	assert.Equal(t, "scada", res.Paths[0].Nodes[2].ID)

	out, err = execute(t, "severity", "-t", topo, "--min-cvss", "9.9")
	require.NoError(t, err)
	assert.Empty(t, decode(t, out).Paths)
}

func TestCriticalCommandRanksByWorstCVSS(t *testing.T) {
	topo := setup(t)

	out, err := execute(t, "critical", "-t", topo, "--min-cvss", "6")
	require.NoError(t, err)

	res := decode(t, out)
	require.Len(t, res.Paths, 1, "the branch stops at the first vulnerable component")
	assert.Equal(t, "hmi", res.Paths[0].Nodes[1].ID)
	assert.InDelta(t, 6.5, res.Paths[0].RiskScore, 1e-9)
}

func TestReachCommand(t *testing.T) {
	topo := setup(t)

	out, err := execute(t, "reach", "uplink", "scada", "-t", topo, "--min-hops", "2")
	require.NoError(t, err)
	res := decode(t, out)
	assert.Equal(t, "reachability", res.Operation)
	require.Len(t, res.Paths, 1)

	_, err = execute(t, "reach", "uplink", "-t", topo)
	assert.Error(t, err)
}

func TestOutputFormats(t *testing.T) {
	topo := setup(t)

	out, err := execute(t, "analyze", "-t", topo, "-o", "report")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 1, report["total_paths"])
	assert.Contains(t, report, "most_violating_paths")

	out, err = execute(t, "analyze", "-t", topo, "-o", "compliance")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Paths: 1")
	assert.Contains(t, out, "protocol_not_allowed: 1")

	_, err = execute(t, "analyze", "-t", topo, "-o", "yaml")
	assert.ErrorContains(t, err, `unknown output format "yaml"`)
}

func TestInvalidSelector(t *testing.T) {
	topo := setup(t)

	_, err := execute(t, "analyze", "-t", topo, "--source", "colour:red")
	assert.ErrorIs(t, err, topology.ErrInvalidSelector)
}

func TestMissingTopology(t *testing.T) {
	setup(t)

	_, err := execute(t, "analyze")
	assert.ErrorContains(t, err, "graph.topology_file")

	_, err = execute(t, "analyze", "-t", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read topology file")
}

func TestExportAndMetricsFile(t *testing.T) {
	topo := setup(t)
	outDir := filepath.Join(t.TempDir(), "artifacts")
	metricsFile := filepath.Join(t.TempDir(), "attackpath.prom")

	out, err := execute(t, "analyze", "-t", topo,
		"--export", "--export-dir", outDir, "--metrics-file", metricsFile)
	require.NoError(t, err)
	res := decode(t, out)

	for _, name := range []string{"projection.json", "report.json"} {
		_, err := os.Stat(filepath.Join(outDir, res.RequestID, name))
		assert.NoError(t, err, name)
	}

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `attackpath_analysis_requests_total{status="success"} 1`)
	assert.Contains(t, string(prom), "attackpath_discovery_requests_total")
}

func TestConfigFile(t *testing.T) {
	topo := setup(t)
	cfg := filepath.Join(t.TempDir(), "attackpath.yaml")
	body := "graph:\n  topology_file: " + topo + "\npolicy:\n  default_limit: 1\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	out, err := execute(t, "reach", "uplink", "scada", "--config", cfg)
	require.NoError(t, err)
	assert.Len(t, decode(t, out).Paths, 1)
}
