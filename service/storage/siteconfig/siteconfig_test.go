package siteconfig

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func testSite() Site {
	return Site{
		DefaultFS:            "hdfs://node1:8020",
		NameDir:              "/w/hadoop/name/42",
		HTTPAddress:          "node1:50070",
		SecondaryHTTPAddress: "node1:50090",
		TmpDir:               "/scratch/hadoop-42-0/tmp",
		MaxTransferThreads:   8192,
	}
}

func TestSite_Documents(t *testing.T) {
	documents := testSite().Documents()
	require.Len(t, documents, 3)

	value, ok := documents[CoreSite].Get(DefaultFS)
	require.True(t, ok)
	assert.Equal(t, "hdfs://node1:8020", value)

	hdfs := documents[HDFSSite]
	for name, expect := range map[string]string{
		NameDir:              "/w/hadoop/name/42",
		HTTPAddress:          "node1:50070",
		SecondaryHTTPAddress: "node1:50090",
		Replication:          "1",
		MaxTransferThreads:   "8192",
	} {
		actual, ok := hdfs.Get(name)
		assert.True(t, ok, name)
		assert.Equal(t, expect, actual, name)
	}
	_, ok = hdfs.Get(DataDir)
	assert.False(t, ok)
	assert.Empty(t, documents[GPFSSite].Properties)
}

func TestConfiguration_MarshalRoundTrip(t *testing.T) {
	configuration := testSite().Documents()[HDFSSite]
	data, err := configuration.Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))
	assert.Contains(t, string(data), "<name>dfs.replication</name>")

	parsed, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, configuration.Properties, parsed.Properties)
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hadoop", "conf", "42")
	var buffer bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buffer)
	writer := NewWriter(afs.New(), logrus.NewEntry(logger))
	ctx := context.Background()

	require.NoError(t, writer.Write(ctx, dir, testSite()))
	for _, name := range []string{CoreSite, HDFSSite, GPFSSite} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Empty(t, buffer.String())

	site := testSite()
	site.DefaultFS = "hdfs://node2:8020"
	require.NoError(t, writer.Write(ctx, dir, site))
	assert.Contains(t, buffer.String(), "site configuration changed")
	data, err := os.ReadFile(filepath.Join(dir, CoreSite))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hdfs://node2:8020")
}

func TestWriter_WriteRequiresDefaultFS(t *testing.T) {
	writer := NewWriter(afs.New(), nil)
	err := writer.Write(context.Background(), t.TempDir(), Site{HTTPAddress: "x:1"})
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	patch, stats, err := Diff([]byte("a\nb\n"), []byte("a\nc\n"), "core-site.xml")
	require.NoError(t, err)
	assert.Contains(t, patch, "--- core-site.xml (previous)")
	assert.Equal(t, DiffStats{Added: 1, Removed: 1}, stats)

	patch, _, err = Diff([]byte("a"), []byte("a"), "x")
	require.NoError(t, err)
	assert.Empty(t, patch)
}
