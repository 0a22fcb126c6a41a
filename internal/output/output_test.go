package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bountylab/reviewd/internal/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("reviewed %d", 42)
	assert.Contains(t, out.String(), "reviewed 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")

	u2, out2, _ := newTestUI()
	u2.VerboseLog("detail %d", 1)
	assert.Empty(t, out2.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestLabelColor(t *testing.T) {
	for _, label := range []models.EarnLabel{
		models.LabelShortlisted, models.LabelHighQuality, models.LabelMidQuality,
		models.LabelLowQuality, models.LabelNeedsReview, models.LabelSpam,
	} {
		assert.Contains(t, LabelColor(label), string(label))
	}
	assert.Equal(t, "custom", LabelColor(models.EarnLabel("custom")))
}

func TestScoreColor(t *testing.T) {
	assert.Contains(t, ScoreColor(85), "85")
	assert.Contains(t, ScoreColor(60), "60")
	assert.Contains(t, ScoreColor(20), "20")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Submission", "Score"})
	require.NotNil(t, table)

	table.Append([]string{"sub-1", "82"})
	table.Append([]string{"sub-2", "45"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "sub-1"), "table output should contain submissions")
	assert.True(t, strings.Contains(result, "sub-2"), "table output should contain submissions")
}
