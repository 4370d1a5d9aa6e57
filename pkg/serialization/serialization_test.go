package serialization

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znichollscr/pydoit-nb/pkg/errors"
	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/testutil"
)

type sampleConfig struct {
	Name    string     `yaml:"name"`
	Output  paths.Path `yaml:"output"`
	Retries int        `yaml:"retries"`
}

func TestYAMLRoundTrip(t *testing.T) {
	converter := NewYAMLConverter()
	in := sampleConfig{Name: "retrieve", Output: "data/raw", Retries: 3}

	dumped, err := converter.Dumps(in)
	require.NoError(t, err)

	var out sampleConfig
	require.NoError(t, converter.Loads(dumped, &out))
	assert.Equal(t, in, out)
}

func TestDumpsIsStable(t *testing.T) {
	converter := NewYAMLConverter()
	value := map[string]int{"b": 2, "a": 1, "c": 3}

	first, err := converter.Dumps(value)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := converter.Dumps(value)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDigestChangesWithValue(t *testing.T) {
	converter := NewYAMLConverter()

	a, err := Digest(converter, sampleConfig{Name: "a"})
	require.NoError(t, err)
	b, err := Digest(converter, sampleConfig{Name: "b"})
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	again, err := Digest(converter, sampleConfig{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configFile := testutil.CreateFile(t, dir, "config.yaml",
		"name: retrieve\noutput: data/raw\nretries: 2\n")

	loaded, err := LoadFromFile[sampleConfig](configFile, NewYAMLConverter())
	require.NoError(t, err)
	assert.Equal(t, sampleConfig{Name: "retrieve", Output: "data/raw", Retries: 2}, loaded)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile[sampleConfig]("/does/not/exist.yaml", NewYAMLConverter())
	testutil.AssertErrorCode(t, err, errors.ErrConfigLoad)
}

type fakeBundle struct {
	config any
	path   paths.Path
}

func (b fakeBundle) HydratedConfig() any            { return b.config }
func (b fakeBundle) HydratedConfigPath() paths.Path { return b.path }

func TestWriteConfigInBundleToDisk(t *testing.T) {
	dir := t.TempDir()
	bundle := fakeBundle{
		config: sampleConfig{Name: "retrieve"},
		path:   paths.Path(dir).Join("nested", "config.yaml"),
	}

	written, err := WriteConfigInBundleToDisk(bundle, NewYAMLConverter())
	require.NoError(t, err)
	assert.Equal(t, bundle.path, written)

	raw, err := os.ReadFile(written.String())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "name: retrieve")
}
