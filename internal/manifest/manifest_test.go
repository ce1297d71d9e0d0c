package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = "filename,title,description,tags,privacy_status,made_for_kids_flag,uploader_account_email,upload_status"

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "metadata.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeManifest(t, sampleHeader+"\n"+
		`a.mp4,First,Desc one,"go, testing",unlisted,false,alice@x.com,pending`+"\n"+
		`b.mp4,Second,Desc two,music,public,TRUE,bob@x.com,uploaded`+"\n")

	m, err := Load(path)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)

	first := m.Entries[0]
	assert.Equal(t, "a.mp4", first.Filename)
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, []string{"go", "testing"}, first.Tags)
	assert.Equal(t, "unlisted", first.Privacy)
	assert.False(t, first.MadeForKids)
	assert.Equal(t, "alice@x.com", first.Account)
	assert.Equal(t, StatusPending, first.Status)

	second := m.Entries[1]
	assert.True(t, second.MadeForKids)
	assert.Equal(t, StatusUploaded, second.Status)
}

func TestLoad_EmptyStatusMeansPending(t *testing.T) {
	path := writeManifest(t, sampleHeader+"\n"+
		"a.mp4,T,D,t,private,false,a@x.com,\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, m.Entries[0].Status)
	assert.Len(t, m.Pending(), 1)
}

func TestLoad_MissingColumns(t *testing.T) {
	path := writeManifest(t, "filename,title\na.mp4,T\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "uploader_account_email")
	assert.Contains(t, err.Error(), "upload_status")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeManifest(t, "")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header row")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := writeManifest(t, sampleHeader+"\n"+
		"a.mp4,T,D,\"x, y\",private,false,a@x.com,pending\n")

	m, err := Load(path)
	require.NoError(t, err)

	m.Entries[0].Status = StatusUploaded
	m.Entries[0].VideoID = "vid-1"
	require.NoError(t, m.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, reloaded.Entries[0].Status)
	assert.Equal(t, "vid-1", reloaded.Entries[0].VideoID)
	assert.Equal(t, []string{"x", "y"}, reloaded.Entries[0].Tags)
	assert.Empty(t, reloaded.Pending())
}

func TestSave_AppendsVideoIDColumn(t *testing.T) {
	path := writeManifest(t, sampleHeader+"\n"+
		"a.mp4,T,D,t,private,false,a@x.com,pending\n")

	m, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	headerLine := strings.SplitN(string(data), "\n", 2)[0]
	assert.True(t, strings.HasSuffix(headerLine, ",video_id"), "header: %s", headerLine)
}

func TestSave_PreservesExtraColumns(t *testing.T) {
	path := writeManifest(t, sampleHeader+",notes\n"+
		"a.mp4,T,D,t,private,false,a@x.com,pending,operator note\n")

	m, err := Load(path)
	require.NoError(t, err)

	m.Entries[0].Status = StatusFailed
	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "operator note")
	assert.Contains(t, string(data), "failed")
}

func TestLoad_UnknownStatusNotPending(t *testing.T) {
	// Legacy statuses from older tools pass through untouched.
	path := writeManifest(t, sampleHeader+"\n"+
		"a.mp4,T,D,t,private,false,a@x.com,skipped_no_email\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, m.Pending())
	assert.False(t, m.Entries[0].Status.Terminal())

	require.NoError(t, m.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "skipped_no_email")
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusUploaded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusSkippedAuth.Terminal())
	assert.True(t, StatusSkippedQuota.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}

func TestSummary(t *testing.T) {
	path := writeManifest(t, sampleHeader+"\n"+
		"a.mp4,T,D,t,private,false,a@x.com,pending\n"+
		"b.mp4,T,D,t,private,false,a@x.com,uploaded\n"+
		"c.mp4,T,D,t,private,false,a@x.com,uploaded\n")

	m, err := Load(path)
	require.NoError(t, err)

	counts := m.Summary()
	assert.Equal(t, 1, counts[StatusPending])
	assert.Equal(t, 2, counts[StatusUploaded])
}

func TestValidateRequired(t *testing.T) {
	e := &Entry{Filename: "a.mp4", Title: "T", Account: "a@x.com"}
	assert.NoError(t, e.ValidateRequired())

	e = &Entry{Filename: "a.mp4"}
	err := e.ValidateRequired()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "uploader_account_email")
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitTags(" a , b ,"))
	assert.Nil(t, SplitTags(""))
	assert.Nil(t, SplitTags(" , ,"))
}
