package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-distill/internal/app"
	"doc-distill/internal/chunker"
	"doc-distill/internal/config"
	"doc-distill/internal/graphstore"
	"doc-distill/internal/llm"
	"doc-distill/internal/loader"
	"doc-distill/internal/store"
	"doc-distill/internal/writer"
)

func fakeBuild(client llm.Client, st store.Store, got *config.Config) buildFunc {
	return func(_ context.Context, cfg config.Config, need app.Need) (*app.Deps, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if got != nil {
			*got = cfg
		}
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		d := &app.Deps{Config: cfg, Log: log, Store: st, Sink: graphstore.NoopSink{}}
		if need&app.NeedModel != 0 {
			d.Model = llm.NewInvoker(client, nil, log, llm.InvokerOptions{})
		}
		return d, nil
	}
}

func execute(t *testing.T, build buildFunc, args ...string) (string, error) {
	t.Helper()
	root := newRootCmdWith(build)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func replyClient(reply string) *llm.MockClient {
	client := llm.NewMockClient("mistral")
	client.On("Generate", mock.Anything, mock.Anything).Return(reply, nil)
	return client
}

func writeDoc(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"graph", "summarize", "runs", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestGraphCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, fakeBuild(nil, nil, nil), "graph")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestGraphCmd_WritesOutputs(t *testing.T) {
	out := t.TempDir()
	doc := writeDoc(t, "doc.txt", "Alice works at Acme.")
	client := replyClient(`[["Alice", "works at", "Acme"]]`)

	stdout, err := execute(t, fakeBuild(client, nil, nil), "graph", doc, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Extracted 1 triple(s), 2 entities")

	triples, err := writer.ReadTriplesJSON(filepath.Join(out, writer.TriplesFile))
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "works at", triples[0].Predicate)
	assert.FileExists(t, filepath.Join(out, writer.GraphFile))
}

func TestGraphCmd_FlagOverrides(t *testing.T) {
	var got config.Config
	doc := writeDoc(t, "doc.txt", "Alice works at Acme.")
	out := t.TempDir()

	_, err := execute(t, fakeBuild(replyClient("[]"), nil, &got),
		"graph", doc, "-q", "--out", out, "--chunked", "--limit", "120",
		"--provider", "anthropic", "--model", "claude-test", "-j", "3")
	require.NoError(t, err)

	assert.Equal(t, out, got.OutputDir)
	assert.True(t, got.GraphChunked)
	assert.Equal(t, 120, got.GraphInputLimit)
	assert.Equal(t, "anthropic", got.LLMProvider)
	assert.Equal(t, "claude-test", got.LLMModel)
	assert.Equal(t, 3, got.Concurrency)
	assert.False(t, got.DisplayGraph)
}

func TestGraphCmd_QuietPrintsNothing(t *testing.T) {
	doc := writeDoc(t, "doc.txt", "Alice works at Acme.")
	stdout, err := execute(t, fakeBuild(replyClient("[]"), nil, nil), "graph", doc, "-q", "--out", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestGraphCmd_UnsupportedFormatWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	doc := writeDoc(t, "deck.pptx", "binary")
	client := llm.NewMockClient("mistral")

	_, err := execute(t, fakeBuild(client, nil, nil), "graph", doc, "--out", out)
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrUnsupportedFormat)
	assert.NoDirExists(t, out)
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSummarizeCmd_WritesPDF(t *testing.T) {
	out := t.TempDir()
	doc := writeDoc(t, "doc.txt", "A short document about nothing in particular.")

	stdout, err := execute(t, fakeBuild(replyClient("It is about nothing."), nil, nil),
		"summarize", doc, "--out", out, "--pdf", "brief.pdf")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Summarized 1 chunk(s)")
	assert.FileExists(t, filepath.Join(out, "brief.pdf"))
}

func TestSummarizeCmd_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	doc := writeDoc(t, "doc.txt", "text")
	_, err := execute(t, fakeBuild(replyClient("x"), nil, nil),
		"summarize", doc, "--out", t.TempDir(), "--chunk-size", "10", "--overlap", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, chunker.ErrInvalidChunkConfig)
}

func TestRunsCmd_RequiresStore(t *testing.T) {
	_, err := execute(t, fakeBuild(nil, nil, nil), "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_PROVIDER")
}

func TestRunsCmd_ListsRuns(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	run, err := st.CreateRun(context.Background(), store.PipelineSummary, "paper.pdf", "mistral")
	require.NoError(t, err)

	stdout, err := execute(t, fakeBuild(nil, st, nil), "runs", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PIPELINE")
	assert.Contains(t, stdout, run.ID.String()[:8])
	assert.Contains(t, stdout, "paper.pdf")
	assert.Contains(t, stdout, "queued")
}

func TestVersionCmd(t *testing.T) {
	stdout, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, "docdistill version dev\n", stdout)
}
