package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: even
description: "4 is even"
target: 4
workers: 1
chunk_size: 1
keys:
  - index: 4
    verdict: "true"
  - index: 2
    error: missing artifact
expect:
  verdict: "true"
  key: 4
assertions:
  - type: order
    indices: [0, 1, 2, 3, 4]
`))
	require.NoError(t, err)

	assert.Equal(t, "even", s.Name)
	assert.Equal(t, uint64(4), s.Target)
	assert.Equal(t, uint64(1), s.ChunkSize)
	require.Len(t, s.Keys, 2)
	assert.Equal(t, "missing artifact", s.Keys[1].Error)
	require.NotNil(t, s.Expect.Key)
	assert.Equal(t, uint32(4), *s.Expect.Key)
	assert.Equal(t, []uint32{0, 1, 2, 3, 4}, s.Assertions[0].Indices)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "assertion instead of assertions"
target: 4
expect:
  verdict: "true"
assertion:
  - type: count
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	const head = "name: x\ndescription: d\ntarget: 4\n"

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "description: d\nexpect: {verdict: \"true\"}\n", "name is required"},
		{"missing description", "name: x\nexpect: {verdict: \"true\"}\n", "description is required"},
		{"negative workers", head + "workers: -1\nexpect: {verdict: \"true\"}\n", "workers must be non-negative"},
		{"negative capacity", head + "capacity: -1\nexpect: {verdict: \"true\"}\n", "capacity must be non-negative"},
		{"bad default", head + "default: maybe\nexpect: {verdict: \"true\"}\n", "default must be"},
		{"key without outcome", head + "keys: [{index: 1}]\nexpect: {verdict: \"true\"}\n", "keys[0]: exactly one of verdict or error"},
		{"key with both", head + "keys: [{index: 1, verdict: \"true\", error: gone}]\nexpect: {verdict: \"true\"}\n", "keys[0]: exactly one"},
		{"key bad verdict", head + "keys: [{index: 1, verdict: maybe}]\nexpect: {verdict: \"true\"}\n", "unknown verdict"},
		{"key twice", head + "keys: [{index: 1, verdict: \"true\"}, {index: 1, error: gone}]\nexpect: {verdict: \"true\"}\n", "scripted twice"},
		{"expect nothing", head + "expect: {}\n", "expect: exactly one"},
		{"expect inconclusive", head + "expect: {verdict: inconclusive}\n", "must be true or false"},
		{"expect bad code", head + "expect: {error: BOGUS}\n", "unknown error code"},
		{"assertion without type", head + "expect: {verdict: \"true\"}\nassertions: [{index: 1}]\n", "type is required"},
		{"assertion unknown type", head + "expect: {verdict: \"true\"}\nassertions: [{type: sometimes}]\n", "unknown assertion type"},
		{"negative count", head + "expect: {verdict: \"true\"}\nassertions: [{type: count, count: -1}]\n", "count must be non-negative"},
		{"order with pool", head + "workers: 4\nexpect: {verdict: \"true\"}\nassertions: [{type: order, indices: [0]}]\n", "order needs workers: 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)
	assert.Equal(t, "a_even_target", scenarios[0].Name)
}

func TestLoadScenarios_NamesFailingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: x\n"), 0o644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}
