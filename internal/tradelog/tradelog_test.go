package tradelog

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestSanitizeJSON(t *testing.T) {
	in := `{"a":NaN,"b":Infinity,"c":-Infinity,"d":"NaN and Infinity","e":[1,NaN]}`
	got := string(SanitizeJSON([]byte(in)))
	assert.Equal(t, `{"a":null,"b":null,"c":null,"d":"NaN and Infinity","e":[1,null]}`, got)

	escaped := `{"s":"say \"NaN\"","n":NaN}`
	assert.Equal(t, `{"s":"say \"NaN\"","n":null}`, string(SanitizeJSON([]byte(escaped))))
}

func TestReadLatestSkipsBrokenTail(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "BTCUSDT.jsonl", `{"price": 100, "stage": "WAIT"}
{"price": NaN, "stage": "SMALL", "volume": {"vol1_ratio": Infinity}}

{"price": 101, broken
[1,2,3]
`)
	rec, err := ReadLatest(p)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "SMALL", rec.Str("stage", ""))
	assert.Nil(t, rec.Num("price"))
	assert.Nil(t, rec.Obj("volume").Num("vol1_ratio"))
}

func TestReadSkipsOversizedLine(t *testing.T) {
	dir := t.TempDir()
	huge := `{"price": 99, "pad": "` + strings.Repeat("x", maxLineBytes+1024) + `"}`
	p := writeFile(t, dir, "BTCUSDT.jsonl", "{\"price\":100}\n"+huge+"\n{\"price\":101}\n")

	rec, err := ReadLatest(p)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 101.0, *rec.Num("price"))

	all, err := ReadAll(p, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 100.0, *all[0].Num("price"))

	tail := writeFile(t, dir, "ETHUSDT.jsonl", "{\"price\":7}\n"+huge)
	rec, err = ReadLatest(tail)
	require.NoError(t, err)
	assert.Equal(t, 7.0, *rec.Num("price"))
}

func TestReadLatestMissingOrEmpty(t *testing.T) {
	dir := t.TempDir()
	rec, err := ReadLatest(filepath.Join(dir, "nope.jsonl"))
	assert.NoError(t, err)
	assert.Nil(t, rec)

	p := writeFile(t, dir, "junk.jsonl", "not json\n{also bad\n")
	rec, err = ReadLatest(p)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReadAllLimit(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "ETHUSDT.jsonl", "{\"i\":1}\n{\"i\":2}\nbad\n{\"i\":3}\n{\"i\":4}\n")
	all, err := ReadAll(p, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	last, err := ReadAll(p, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, 3.0, *last[0].Num("i"))
	assert.Equal(t, 4.0, *last[1].Num("i"))
}

func TestReadEventsFiltersSymbol(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "trade_history.jsonl", `{"symbol":"btcusdt","side":"BUY"}
{"symbol":"ETHUSDT","side":"BUY"}
{"symbol":"BTCUSDT","side":"SELL"}
`)
	evs, err := ReadEvents(p, 2000, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "SELL", evs[1].Str("side", ""))
}

func TestReadGzip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "XRPUSDT.jsonl.gz")
	f, err := os.Create(p)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte("{\"price\": 0.5}\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	rec, err := ReadLatest(p)
	require.NoError(t, err)
	assert.Equal(t, 0.5, *rec.Num("price"))
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		"volume":  "not an object",
		"issues":  []any{" a ", "", nil, 3.0},
		"blocked": true,
		"n":       "1.5",
		"stage":   nil,
	}
	assert.Empty(t, rec.Obj("volume"))
	assert.Equal(t, []string{"a", "3"}, rec.Strings("issues"))
	assert.True(t, rec.Bool("blocked"))
	assert.False(t, rec.Bool("missing"))
	assert.Equal(t, 1.5, *rec.Num("n"))
	assert.Equal(t, "WAIT", rec.Str("stage", "WAIT"))
	assert.False(t, rec.Has("stage"))
}

func TestAppendDecisionAndCompress(t *testing.T) {
	dir := t.TempDir()
	SetDir(dir)
	t.Cleanup(func() { SetDir("") })

	require.NoError(t, AppendDecision(DecisionEntry{Symbol: "BTCUSDT", Action: "COMPRAR", Confidence: 83}))
	p := DecisionsFile(time.Now())
	rows, err := ReadAll(p, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "COMPRAR", rows[0].Str("action", ""))
	assert.NotEmpty(t, rows[0].Str("time", ""))

	old := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(p, old, old))
	require.NoError(t, CompressOlder(3))

	_, err = os.Stat(p)
	assert.True(t, os.IsNotExist(err))
	rows, err = ReadAll(p+".gz", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCompressOlderReportsFailures(t *testing.T) {
	dir := t.TempDir()
	SetDir(dir)
	t.Cleanup(func() { SetDir("") })

	bad := writeFile(t, dir, "decisions_2024-01-01.jsonl", "{}\n")
	good := writeFile(t, dir, "decisions_2024-01-02.jsonl", "{}\n")
	old := time.Now().AddDate(0, 0, -30)
	for _, p := range []string{bad, good} {
		require.NoError(t, os.Chtimes(p, old, old))
	}

	orig := compressFile
	t.Cleanup(func() { compressFile = orig })
	compressFile = func(src, dst string) error {
		if src == bad {
			return errors.New("disk full")
		}
		return orig(src, dst)
	}

	err := CompressOlder(7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decisions_2024-01-01.jsonl")
	assert.Contains(t, err.Error(), "disk full")

	_, statErr := os.Stat(bad)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(good + ".gz")
	assert.NoError(t, statErr)
	_, statErr = os.Stat(bad + ".gz")
	assert.True(t, os.IsNotExist(statErr))
}
