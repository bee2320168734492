package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HEAPCTL_CONFIG", "")
	c, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), c)
	require.Equal(t, alloc.DefaultFitMargin, c.FitMargin)
}

func TestLoadConfigLayers(t *testing.T) {
	path := writeFile(t, "heapctl.yaml", `
fitMargin: 64
arena: file
limit: 1MiB
checkEvery: 10
`)
	t.Setenv("HEAPCTL_CHECK_EVERY", "3")
	t.Setenv("HEAPCTL_MIN_GROW", "4KiB")

	c, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 64, c.FitMargin, "from file")
	require.Equal(t, arenaFile, c.Arena, "from file")
	require.Equal(t, 3, c.CheckEvery, "env beats file")
	require.True(t, c.VerifyData, "default kept")

	limit, err := c.LimitBytes()
	require.NoError(t, err)
	require.Equal(t, 1<<20, limit)

	ac, err := c.AllocConfig()
	require.NoError(t, err)
	require.Equal(t, 4096, ac.MinGrow)
	require.Equal(t, 64, ac.FitMargin)
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	path := writeFile(t, "c.yaml", "growFull: true\n")
	t.Setenv("HEAPCTL_CONFIG", path)

	c, err := loadConfig("")
	require.NoError(t, err)
	require.True(t, c.GrowFull)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("HEAPCTL_CONFIG", "")

	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "reading config file")

	_, err = loadConfig(writeFile(t, "bad.yaml", "fitMargin: [1, 2]\n"))
	require.ErrorContains(t, err, "parsing config file")

	_, err = loadConfig(writeFile(t, "arena.yaml", "arena: disk\n"))
	require.ErrorContains(t, err, "arena must be")

	_, err = loadConfig(writeFile(t, "limit.yaml", "limit: lots\n"))
	require.ErrorContains(t, err, "limit")

	t.Setenv("HEAPCTL_CHECK_EVERY", "often")
	_, err = loadConfig("")
	require.ErrorContains(t, err, "environment")
}

func TestOverlayFlags(t *testing.T) {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	fs.Int("fit-margin", alloc.DefaultFitMargin, "")
	fs.Bool("grow-full", false, "")
	fs.String("arena", arenaMem, "")
	fs.String("limit", "", "")
	fs.Int("check-every", 0, "")
	fs.Bool("verify-data", true, "")
	require.NoError(t, fs.Parse([]string{"--fit-margin=-1", "--verify-data=false", "--limit", "2MiB"}))

	c := defaultConfig()
	c.Arena = arenaFile
	c.CheckEvery = 5
	require.NoError(t, overlayFlags(fs, &c))

	require.Equal(t, -1, c.FitMargin)
	require.False(t, c.VerifyData)
	require.Equal(t, "2MiB", c.Limit)
	require.Equal(t, arenaFile, c.Arena, "unset flag keeps the lower layer")
	require.Equal(t, 5, c.CheckEvery, "unset flag keeps the lower layer")

	require.NoError(t, fs.Parse([]string{"--arena", "tape"}))
	require.Error(t, overlayFlags(fs, &c))
}
