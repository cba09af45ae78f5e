package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/opini/pkg/opini/internalerr"
)

func TestReadCSV(t *testing.T) {
	input := "\xEF\xBB\xBFdate,id,content,user\n" +
		"2024-07-31 23:59:59+00:00,101,\"Bendera #onepiece, keren!\",budi\n" +
		"bukan tanggal,,Merdeka 17 agustus,\n" +
		",103,,sari\n"

	logger, hook := test.NewNullLogger()
	posts, err := ReadCSV(strings.NewReader(input), Options{Logger: logger})
	require.NoError(t, err)
	require.Len(t, posts, 3)

	require.Equal(t, "101", posts[0].ID)
	require.Equal(t, "budi", posts[0].User)
	require.Equal(t, "Bendera #onepiece, keren!", posts[0].Content)
	require.Equal(t, time.Date(2024, 7, 31, 23, 59, 59, 0, time.UTC), posts[0].Date.UTC())
	require.Equal(t, "2024-07-31", posts[0].Day())
	require.Equal(t, 1, posts[0].Row)

	require.False(t, posts[1].HasDate(), "unparseable date becomes missing")
	require.Len(t, posts[1].ID, 26, "missing id gets a ULID")
	require.Equal(t, "", posts[1].Day())

	require.Equal(t, "", posts[2].Content)
	require.Equal(t, "103", posts[2].ID)

	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	require.Equal(t, 2, hook.LastEntry().Data["row"])
}

func TestReadCSVMissingContent(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("date,text\n2024-01-01,halo\n"), Options{})
	require.ErrorIs(t, err, internalerr.ErrMissingColumn)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), Options{})
	require.ErrorIs(t, err, internalerr.ErrEmptyDataset)

	_, err = ReadCSV(strings.NewReader("content\n"), Options{})
	require.ErrorIs(t, err, internalerr.ErrEmptyDataset)
}

func TestReadCSVCustomColumns(t *testing.T) {
	posts, err := ReadCSV(strings.NewReader("Tweet;Waktu\nhalo dunia;2024-08-17\n"), Options{
		ContentColumn: "tweet",
		DateColumn:    "waktu",
		Comma:         ';',
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "halo dunia", posts[0].Content)
	require.Equal(t, "2024-08-17", posts[0].Day())
}

func TestReadJSONL(t *testing.T) {
	input := `{"content":"Bendera keren","id":12345,"date":"2024-08-17T10:00:00Z","user":"budi"}
not json
{"content":42}

{"Content":"halo"}
`
	logger, hook := test.NewNullLogger()
	posts, err := ReadJSONL(strings.NewReader(input), Options{Logger: logger})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	require.Equal(t, "12345", posts[0].ID)
	require.Equal(t, "2024-08-17", posts[0].Day())
	require.Equal(t, "", posts[1].Content, "non-string content is empty")
	require.Equal(t, "halo", posts[2].Content)
	require.Equal(t, 5, posts[2].Row)
	require.Len(t, hook.Entries, 1)
}

func TestReadJSONLMissingContent(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader(`{"text":"halo"}`+"\n"), Options{})
	require.ErrorIs(t, err, internalerr.ErrMissingColumn)

	_, err = ReadJSONL(strings.NewReader("garbage\n"), Options{})
	require.ErrorIs(t, err, internalerr.ErrEmptyDataset)
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()
	tsv := filepath.Join(dir, "posts.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte("content\tuser\nhalo, dunia\tsari\n"), 0o644))

	posts, err := LoadFile(tsv, Options{})
	require.NoError(t, err)
	require.Equal(t, "halo, dunia", posts[0].Content)
	require.Equal(t, "sari", posts[0].User)

	jl := filepath.Join(dir, "posts.jsonl")
	require.NoError(t, os.WriteFile(jl, []byte(`{"content":"halo"}`+"\n"), 0o644))
	posts, err = LoadFile(jl, Options{})
	require.NoError(t, err)
	require.Equal(t, "halo", posts[0].Content)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), Options{})
	require.Error(t, err)
}

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"2024-08-17":                     "2024-08-17",
		"2024-08-17 09:30:00":            "2024-08-17",
		"2024-08-17T09:30:00+07:00":      "2024-08-17",
		"17/08/2024":                     "2024-08-17",
		"17 August 2024":                 "2024-08-17",
		"Sat Aug 17 09:30:00 +0000 2024": "2024-08-17",
	}
	for in, want := range cases {
		got, ok := ParseDate(in, nil)
		require.True(t, ok, in)
		require.Equal(t, want, got.Format(time.DateOnly), in)
	}
	for _, bad := range []string{"", "  ", "kemarin", "2024-13-45"} {
		_, ok := ParseDate(bad, nil)
		require.False(t, ok, bad)
	}
}

func TestCleanerClean(t *testing.T) {
	c := NewCleaner(nil)
	got := c.Clean("Selamat pagi @budi!! cek http://x.co #onepiece 123 Makanan")
	require.Equal(t, "selamat pagi cek onepiece makan", got)
	require.Equal(t, "", c.Clean("   "))
	require.Equal(t, "anak main", c.Clean("Anak-anak bermain"))
}

func TestCleanerCleanAll(t *testing.T) {
	posts := make([]Post, 50)
	for i := range posts {
		posts[i] = Post{Content: "Mereka MEMAKAN makanan #enak"}
	}
	posts[7].Content = "Berlari di @taman"

	out, err := NewCleaner(nil).CleanAll(context.Background(), posts, 4)
	require.NoError(t, err)
	require.Len(t, out, len(posts))
	require.Equal(t, "mereka makan makan enak", out[0])
	require.Equal(t, "lari di", out[7])
}

func TestCleanerCleanAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCleaner(nil).CleanAll(ctx, []Post{{Content: "halo"}}, 2)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
