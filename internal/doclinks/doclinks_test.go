package doclinks

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	csv := `File,Documentation
src/main.py,https://docs.example.com/main
src/util.py,https://docs.example.com/util
src/missing.py,
,https://docs.example.com/orphan
`
	table, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Len(t, table, 2)
	assert.Equal(t, "https://docs.example.com/main", table["src/main.py"])
	assert.Equal(t, "https://docs.example.com/util", table["src/util.py"])
}

func TestParse_ExtraColumns(t *testing.T) {
	t.Parallel()

	csv := `Owner,File,Team,Documentation
alice,src/main.py,core,https://docs.example.com/main
`
	table, err := Parse(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com/main", table["src/main.py"])
}

func TestParse_MissingColumns(t *testing.T) {
	t.Parallel()
	_, err := Parse(strings.NewReader("Path,URL\na,b\n"))
	assert.Error(t, err)
}

func TestParse_EmptyStream(t *testing.T) {
	t.Parallel()
	table, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestLoad_MissingFileIsEmptyTable(t *testing.T) {
	t.Parallel()
	table, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Empty(t, table)
}
