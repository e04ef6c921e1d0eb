package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWorkflowConfig(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		v := viper.New()
		setWorkflowDefaults(v)

		cfg, err := decodeWorkflowConfig(v)
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.MaxAssignees)
		assert.Equal(t, CascadeStrict, cfg.CascadePolicy)
		assert.True(t, cfg.HasStatus("printing"))
		assert.False(t, cfg.HasStatus("teleported"))
	})

	t.Run("file overrides", func(t *testing.T) {
		v := viper.New()
		v.SetConfigType("yml")
		setWorkflowDefaults(v)
		require.NoError(t, v.ReadConfig(strings.NewReader(`
workflow:
  cascadePolicy: Best_Effort
  maxAssignees: 3
  priorities: [rush, normal]
`)))

		cfg, err := decodeWorkflowConfig(v)
		require.NoError(t, err)
		assert.Equal(t, CascadeBestEffort, cfg.CascadePolicy)
		assert.Equal(t, 3, cfg.MaxAssignees)
		assert.True(t, cfg.HasPriority("RUSH"))
		assert.Equal(t, 200, cfg.DescriptionLimit)
	})

	t.Run("rejects unknown policy", func(t *testing.T) {
		v := viper.New()
		setWorkflowDefaults(v)
		v.Set("workflow.cascadePolicy", "eventually")

		_, err := decodeWorkflowConfig(v)
		assert.Error(t, err)
	})
}

func TestStaticHolder(t *testing.T) {
	cfg := DefaultWorkflowConfig()
	cfg.MaxAssignees = 2
	holder := NewStaticWorkflowConfigHolder(cfg)
	assert.Equal(t, 2, holder.Get().MaxAssignees)

	var nilHolder *WorkflowConfigHolder
	assert.Equal(t, 10, nilHolder.Get().MaxAssignees)
}
