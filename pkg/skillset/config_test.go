package skillset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Sets: []SkillSet{
			{Name: "a", Default: true},
			{Name: "b"},
			{Name: "c", Default: true},
			{Name: "claude-only", Default: true, Agents: RestrictTo("claude")},
		},
	}
}

func setNames(sets []SkillSet) []string {
	names := make([]string, 0, len(sets))
	for _, s := range sets {
		names = append(names, s.Name)
	}
	return names
}

func TestConfigNames(t *testing.T) {
	config := testConfig()
	assert.Equal(t, []string{"a", "b", "c", "claude-only"}, config.Names())

	empty := &Config{}
	assert.Empty(t, empty.Names())
}

func TestConfigDefaults(t *testing.T) {
	config := testConfig()

	// Exactly the default-marked sets, in document order
	assert.Equal(t, []string{"a", "c", "claude-only"}, setNames(config.Defaults()))
}

func TestConfigDefaultsNone(t *testing.T) {
	config := &Config{Sets: []SkillSet{{Name: "a"}, {Name: "b"}}}
	assert.Empty(t, config.Defaults())
}

func TestConfigByName(t *testing.T) {
	config := testConfig()

	s, ok := config.ByName("b")
	assert.True(t, ok)
	assert.Equal(t, "b", s.Name)

	_, ok = config.ByName("nope")
	assert.False(t, ok)
}

func TestConfigByNames(t *testing.T) {
	config := testConfig()

	sets, err := config.ByNames([]string{"c", "a"})
	require.NoError(t, err)
	// Request order, not document order
	assert.Equal(t, []string{"c", "a"}, setNames(sets))
}

func TestConfigByNamesUnknown(t *testing.T) {
	config := testConfig()

	sets, err := config.ByNames([]string{"a", "missing", "also-missing"})
	require.Error(t, err)
	assert.Nil(t, sets, "no partial result on failure")

	var unknown *UnknownSkillSetError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"missing", "also-missing"}, unknown.Missing)
	assert.Equal(t, []string{"a", "b", "c", "claude-only"}, unknown.Available)
	assert.Contains(t, err.Error(), "'missing'")
	assert.Contains(t, err.Error(), "'also-missing'")
	assert.Contains(t, err.Error(), "'a'")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:   "valid config",
			config: testConfig(),
		},
		{
			name:   "empty config",
			config: &Config{},
		},
		{
			name: "missing name",
			config: &Config{Sets: []SkillSet{
				{Name: "ok"},
				{Description: "anonymous"},
			}},
			wantErr: "skill set at index 1 has no name",
		},
		{
			name: "duplicate names",
			config: &Config{Sets: []SkillSet{
				{Name: "twice"},
				{Name: "twice"},
			}},
			wantErr: "duplicate skill set name 'twice'",
		},
		{
			name: "skill origin without location",
			config: &Config{Sets: []SkillSet{
				{Name: "s", Skills: []SkillOrigin{{}}},
			}},
			wantErr: "skill origin at index 0 has no location",
		},
		{
			name: "mcp server without command",
			config: &Config{Sets: []SkillSet{
				{Name: "s", McpServers: map[string]McpServerConfig{"dbt": {}}},
			}},
			wantErr: "MCP server 'dbt' has no command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateReportsAllViolations(t *testing.T) {
	config := &Config{Sets: []SkillSet{
		{},
		{Name: "dup"},
		{Name: "dup", McpServers: map[string]McpServerConfig{"x": {}}},
	}}

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no name")
	assert.Contains(t, err.Error(), "duplicate skill set name 'dup'")
	assert.Contains(t, err.Error(), "MCP server 'x' has no command")
}
