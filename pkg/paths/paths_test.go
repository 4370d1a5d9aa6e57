package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStem(t *testing.T) {
	tests := []struct {
		name string
		path Path
		want string
	}{
		{"with extension", "configs/run.yaml", "run"},
		{"no extension", "configs/run", "run"},
		{"double extension", "archive.tar.gz", "archive.tar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.Stem())
		})
	}
}

func TestWithExt(t *testing.T) {
	tests := []struct {
		name string
		path Path
		ext  string
		want Path
	}{
		{"replace", "notebooks/100_compile.ipynb", ".py", "notebooks/100_compile.py"},
		{"add", "notebooks/100_compile", ".py", "notebooks/100_compile.py"},
		{"same", "run.yaml", ".yaml", "run.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.WithExt(tt.ext))
		})
	}
}

func TestJoinAndDir(t *testing.T) {
	p := Path("/output").Join("v1", "notebooks-executed")
	assert.Equal(t, Path("/output/v1/notebooks-executed"), p)
	assert.Equal(t, Path("/output/v1"), p.Dir())
	assert.Equal(t, "notebooks-executed", p.Base())
}

func TestRelativeTo(t *testing.T) {
	rel, err := Path("/repo/notebooks/raw").RelativeTo("/repo")
	require.NoError(t, err)
	assert.Equal(t, Path(filepath.Join("notebooks", "raw")), rel)
}

func TestStateDirRespectsEnvOverride(t *testing.T) {
	t.Setenv(EnvStateDir, "/tmp/custom-state")
	assert.Equal(t, Path("/tmp/custom-state"), StateDir())
}

func TestLogFileRespectsEnvOverride(t *testing.T) {
	t.Setenv(EnvLogFile, "/tmp/custom.log")
	assert.Equal(t, Path("/tmp/custom.log"), LogFile())
}

func TestLogFileDefaultsUnderStateDir(t *testing.T) {
	t.Setenv(EnvStateDir, "/tmp/state")
	t.Setenv(EnvLogFile, "")
	assert.Equal(t, Path("/tmp/state/nbrun.log"), LogFile())
}
