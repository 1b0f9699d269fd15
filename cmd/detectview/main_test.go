package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectview/internal/config"
	"detectview/internal/log"
	"detectview/internal/stubserver"
	"detectview/pkg/testutils"
	"detectview/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStub(t *testing.T) (*stubserver.Server, string) {
	t.Helper()
	stub := stubserver.New(stubserver.Fixtures{
		Results: map[string][]types.DetectionResult{
			"car.png": {{
				Filename:        "car.png",
				MainModel:       &types.ModelBoxes{Boxes: []types.DetectionBox{{0, 0, 50, 50}}},
				SubModelResults: []types.ModelBoxes{{Boxes: []types.DetectionBox{{10, 10, 5, 5}}}},
			}},
		},
		Behaviors: map[string]stubserver.Behavior{"broken.png": stubserver.Fail},
	})
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)
	return stub, srv.URL + "/"
}

// execute runs the CLI isolated from the user's config and environment.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EndpointEnvVar, "")
	dir := t.TempDir()
	base := []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDetectPrintsCounts(t *testing.T) {
	stub, endpoint := newStub(t)
	dir := t.TempDir()
	car := testutils.CreateTestImage(t, dir, "car.png", 100, 100)
	broken := testutils.CreateTestImage(t, dir, "broken.png", 10, 10)

	out, err := execute(t, "--endpoint", endpoint, "detect", car, broken)
	require.NoError(t, err)
	out = testutils.StripANSI(out)

	assert.Contains(t, out, "[1/2] car.png")
	assert.Contains(t, out, "car.png: 2 objects detected (100x100)")
	assert.Contains(t, out, "broken.png: no result")
	assert.Contains(t, out, "2 objects in 2 images")

	reqs := stub.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "car.png", reqs[0].Filename)
	assert.Equal(t, "image/png", reqs[0].ContentType)
}

func TestDetectPickScreenCountsMainOnly(t *testing.T) {
	_, endpoint := newStub(t)
	car := testutils.CreateTestImage(t, t.TempDir(), "car.png", 100, 100)

	out, err := execute(t, "--endpoint", endpoint, "--screen", "pick", "detect", car)
	require.NoError(t, err)
	out = testutils.StripANSI(out)
	assert.Contains(t, out, "car.png: 1 object detected")
}

func TestDetectJSON(t *testing.T) {
	_, endpoint := newStub(t)
	car := testutils.CreateTestImage(t, t.TempDir(), "car.png", 100, 100)

	// Anything written straight to the process stdout, such as log lines,
	// would corrupt the JSON as well
	procOut, err := os.Create(filepath.Join(t.TempDir(), "stdout"))
	require.NoError(t, err)
	origStdout := os.Stdout
	os.Stdout = procOut
	t.Cleanup(func() {
		os.Stdout = origStdout
		procOut.Close()
	})

	t.Setenv(config.EndpointEnvVar, "")
	dir := t.TempDir()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, "missing.env"),
		"--endpoint", endpoint, "detect", "--json", car,
	})
	require.NoError(t, cmd.Execute())

	var resp types.DetectionResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp), stdout.String())
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "car.png", resp.Results[0].Filename)
	assert.Equal(t, 50.0, resp.Results[0].MainBoxes()[0].Width())

	assert.Contains(t, testutils.StripANSI(stderr.String()), "[1/1] car.png")

	leaked, err := os.ReadFile(procOut.Name())
	require.NoError(t, err)
	assert.Empty(t, string(leaked))
}

func TestTUILogsStayOffTerminal(t *testing.T) {
	root := NewRootCmd()
	tuiCmd, _, err := root.Find([]string{"tui"})
	require.NoError(t, err)
	assert.NotEmpty(t, tuiCmd.Annotations[ownsTerminal])

	detectCmd, _, err := root.Find([]string{"detect"})
	require.NoError(t, err)
	assert.Empty(t, detectCmd.Annotations[ownsTerminal])

	dir := t.TempDir()
	logPath := filepath.Join(dir, "tui.log")
	opts := &rootOptions{
		cfgFile: filepath.Join(dir, "config.yaml"),
		envFile: filepath.Join(dir, "missing.env"),
		logFile: logPath,
	}
	t.Setenv(config.EndpointEnvVar, "")
	t.Cleanup(func() { log.Configure() })
	require.NoError(t, opts.load(tuiCmd))

	log.Info("picked %d images", 2)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "picked 2 images")
}

func TestDetectAnnotate(t *testing.T) {
	_, endpoint := newStub(t)
	dir := t.TempDir()
	car := testutils.CreateTestImage(t, dir, "car.png", 720, 720)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "--endpoint", endpoint, "detect", "--annotate-dir", outDir, car)
	require.NoError(t, err)

	dst := filepath.Join(outDir, "car_detected.png")
	assert.Contains(t, out, "wrote "+dst)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 360, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
}

func TestDetectDir(t *testing.T) {
	stub, endpoint := newStub(t)
	dir := t.TempDir()
	testutils.CreateTestImage(t, dir, "car.png", 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	_, err := execute(t, "--endpoint", endpoint, "detect", "--dir", dir)
	require.NoError(t, err)
	require.Len(t, stub.Requests(), 1)
	assert.Equal(t, "car.png", stub.Requests()[0].Filename)
}

func TestDetectErrors(t *testing.T) {
	_, endpoint := newStub(t)

	_, err := execute(t, "--endpoint", endpoint, "detect")
	assert.EqualError(t, err, "no images given")

	_, err = execute(t, "--endpoint", endpoint, "detect", filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)

	_, err = execute(t, "--endpoint", "ftp://nowhere/", "detect", "x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid endpoint")

	_, err = execute(t, "--screen", "mobile", "detect", "x.png")
	require.Error(t, err)
}

func TestEndpointFromEnvironment(t *testing.T) {
	stub, endpoint := newStub(t)
	car := testutils.CreateTestImage(t, t.TempDir(), "car.png", 10, 10)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(config.EndpointEnvVar+"="+endpoint+"\n"), 0644))
	t.Setenv(config.EndpointEnvVar, "")
	require.NoError(t, os.Unsetenv(config.EndpointEnvVar))

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "config.yaml"), "--env-file", envFile, "detect", car})
	require.NoError(t, cmd.Execute())
	assert.Len(t, stub.Requests(), 1)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detectview.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.New(), loaded)

	out, err = execute(t, "--endpoint", "http://detector:9000/", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_screen: native")
	assert.Contains(t, out, "http://detector:9000/")
}
