package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analytics "restaurant-system/internal/microservices/analytics/service"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "notify", "report", "operator"} {
		assert.True(t, names[want], want)
	}
}

func TestReport_RejectsBadFlagsBeforeConnecting(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"tab", []string{"report", "--tab", "refunds"}},
		{"format", []string{"report", "--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCommand()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestOperatorAdd_RequiresPassword(t *testing.T) {
	t.Setenv("POS_NEW_OPERATOR_PASSWORD", "")
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"operator", "add", "--email", "ops@example.com"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POS_NEW_OPERATOR_PASSWORD")
}

func sampleReport() analytics.Report {
	return analytics.Report{
		Tab: analytics.TabAll,
		Days: []analytics.DailyStats{
			{Date: "2026-10-18", TotalOrders: 2, ItemsSold: 5, TotalRevenue: 1150, Revenue: "₹1,150"},
		},
		Summary: analytics.Summary{TotalOrders: 2, ItemsSold: 5, TotalRevenue: 1150, Revenue: "₹1,150"},
	}
}

func TestRenderReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, sampleReport(), "text"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))
	assert.Contains(t, lines[1], "2026-10-18")
	assert.Contains(t, lines[2], "₹1,150")
}

func TestRenderReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderReport(&buf, sampleReport(), "json"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "all", out["tab"])
}
