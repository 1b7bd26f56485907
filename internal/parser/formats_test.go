package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memindex/pkg/types"
)

const mdSource = `# Deploying

Short guide.

## Staging

Push to the staging branch. See [runbook](docs/runbook.md).

## Production

Tag a release.
`

func TestMarkdownHeadingEntities(t *testing.T) {
	res, err := NewMarkdownParser().Parse([]byte(mdSource), "docs/deploy.md")
	require.NoError(t, err)

	top := entityByName(t, res, "docs/deploy.md::Deploying")
	assert.Equal(t, types.EntityDocumentation, top.Type)
	assert.Equal(t, "# Deploying", top.Signature)

	staging := entityByName(t, res, "docs/deploy.md::Deploying::Staging")
	assert.Contains(t, staging.Body, "staging branch")
	assert.NotContains(t, staging.Body, "Tag a release", "span ends at the sibling heading")

	assert.True(t, hasRelation(res, top.Name, staging.Name, types.RelationContains))
	assert.True(t, hasRelation(res, "docs/deploy.md", "docs/runbook.md", types.RelationReferences))
}

func TestMarkdownFileSummaryFromFirstHeading(t *testing.T) {
	res, err := NewMarkdownParser().Parse([]byte(mdSource), "docs/deploy.md")
	require.NoError(t, err)

	file := entityByName(t, res, "docs/deploy.md")
	assert.Equal(t, "Deploying", file.DocComment)
}

func TestJSONTopLevelKeys(t *testing.T) {
	src := `{
  "name": "demo",
  "workers": 4,
  "exclude": ["vendor"],
  "nested": {"a": 1}
}`
	res, err := NewJSONParser().Parse([]byte(src), "config.json")
	require.NoError(t, err)

	name := entityByName(t, res, "config.json::name")
	assert.Equal(t, types.EntityVariable, name.Type)
	assert.Equal(t, `"name": string`, name.Signature)

	assert.Equal(t, `"workers": number`, entityByName(t, res, "config.json::workers").Signature)
	assert.Equal(t, `"exclude": array`, entityByName(t, res, "config.json::exclude").Signature)
	assert.Equal(t, `"nested": object`, entityByName(t, res, "config.json::nested").Signature)
	assert.False(t, res.Streamed)
}

func TestJSONArrayDocumentHasNoKeys(t *testing.T) {
	res, err := NewJSONParser().Parse([]byte(`[1, 2, 3]`), "list.json")
	require.NoError(t, err)

	require.Len(t, res.Entities, 1)
	assert.Equal(t, types.EntityFile, res.Entities[0].Type)
}

func TestJSONInvalidDocument(t *testing.T) {
	_, err := NewJSONParser().Parse([]byte(`{"a": `), "bad.json")
	require.Error(t, err)
	var parseErr *types.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestJSONOversizedDocumentStreams(t *testing.T) {
	line := `{"k": "` + strings.Repeat("x", 120) + `"}`
	big := strings.Repeat(line+"\n", streamingThreshold/len(line)+1)

	res, err := NewJSONParser().Parse([]byte(big), "big.json")
	require.NoError(t, err)

	assert.True(t, res.Streamed)
	require.Greater(t, len(res.Entities), 1)
	assert.Equal(t, types.EntityTextChunk, res.Entities[1].Type)
}

func TestTextParserWindows(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("line of log output\n")
	}
	res, err := NewTextParser().Parse([]byte(sb.String()), "run.log")
	require.NoError(t, err)

	chunk := entityByName(t, res, "run.log::chunk_1")
	assert.Equal(t, types.EntityTextChunk, chunk.Type)
	assert.Equal(t, 1, chunk.StartLine)
	assert.Equal(t, 50, chunk.EndLine)

	// 120 lines plus the trailing newline make three windows
	entityByName(t, res, "run.log::chunk_3")
	assert.True(t, hasRelation(res, "run.log", "run.log::chunk_1", types.RelationContains))
}
