package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/electoral-rag/internal/core/domain"
)

type ingestorStub struct {
	paths  []string
	report *domain.IngestReport
	err    error
}

func (s *ingestorStub) AddPaths(_ context.Context, paths []string) (*domain.IngestReport, error) {
	s.paths = paths
	return s.report, s.err
}

type queryStub struct {
	question string
	opts     domain.QueryOptions
	err      error
}

func (s *queryStub) Answer(_ context.Context, question string, opts domain.QueryOptions) (*domain.Answer, error) {
	s.question = question
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	answer := &domain.Answer{
		Question: question,
		Answer:   "Seats are allocated by proportional representation.",
		Sources:  []string{"constitution.pdf", domain.UnknownSource},
	}
	if opts.Translate {
		answer.Translation = "සමානුපාතික නියෝජනය"
	}
	return answer, nil
}

type translatorStub struct{}

func (translatorStub) Translate(_ context.Context, text string) string { return "SI:" + text }

type queueStub struct {
	published []string
}

func (q *queueStub) PublishIngestRequest(_ context.Context, paths []string) error {
	q.published = append(q.published, paths...)
	return nil
}

func (q *queueStub) SubscribeIngestRequests(context.Context, func(context.Context, []string) error) error {
	return nil
}

func newTestCommand(t *testing.T, services *Services, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	color.NoColor = true

	load := func(context.Context) (*Services, func(), error) {
		return services, func() {}, nil
	}
	cmd := NewRootCommand(load, nil)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf, err
}

func TestRootCmd_QueryPrintsAnswerAndSources(t *testing.T) {
	query := &queryStub{}
	buf, err := newTestCommand(t, &Services{Query: query}, "--query", "How are seats allocated?")

	require.NoError(t, err)
	want := "\nQuestion:\nHow are seats allocated?\n" +
		"\nAnswer:\nSeats are allocated by proportional representation.\n" +
		"\nSources:\n- constitution.pdf\n- Unknown\n"
	assert.Equal(t, want, buf.String())
	assert.False(t, query.opts.Translate)
}

func TestRootCmd_QueryWithTranslation(t *testing.T) {
	query := &queryStub{}
	buf, err := newTestCommand(t, &Services{Query: query}, "--query", "q", "--translate", "-k", "6")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\nSinhala Translation:\nසමානුපාතික නියෝජනය\n")
	assert.True(t, query.opts.Translate)
	assert.Equal(t, 6, query.opts.TopK)
}

func TestRootCmd_AddPrintsPerPathProgress(t *testing.T) {
	ingestor := &ingestorStub{report: &domain.IngestReport{
		Paths: []domain.PathResult{
			{Path: "data/constitution.pdf", Status: domain.PathProcessed, Chunks: 12},
			{Path: "data/missing.pdf", Status: domain.PathMissing},
		},
		TotalChunks: 12,
	}}
	buf, err := newTestCommand(t, &Services{Ingestor: ingestor}, "--add", "data/constitution.pdf", "data/missing.pdf")

	require.NoError(t, err)
	assert.Equal(t, []string{"data/constitution.pdf", "data/missing.pdf"}, ingestor.paths)
	assert.Equal(t, "Processing data/constitution.pdf...\n"+
		"Added 12 chunks from data/constitution.pdf\n"+
		"File not found: data/missing.pdf\n"+
		"Added 12 total chunks to vector store\n", buf.String())
}

func TestRootCmd_AddWithNothingIndexedOmitsTotal(t *testing.T) {
	ingestor := &ingestorStub{report: &domain.IngestReport{
		Paths: []domain.PathResult{{Path: "gone.pdf", Status: domain.PathMissing}},
	}}
	buf, err := newTestCommand(t, &Services{Ingestor: ingestor}, "--add", "gone.pdf")

	require.NoError(t, err)
	assert.Equal(t, "File not found: gone.pdf\n", buf.String())
}

func TestRootCmd_AddThenQuery(t *testing.T) {
	ingestor := &ingestorStub{report: &domain.IngestReport{
		Paths:       []domain.PathResult{{Path: "a.txt", Status: domain.PathProcessed, Chunks: 1}},
		TotalChunks: 1,
	}}
	query := &queryStub{}
	buf, err := newTestCommand(t, &Services{Ingestor: ingestor, Query: query}, "--add", "a.txt", "--query", "q")

	require.NoError(t, err)
	assert.Equal(t, "q", query.question)
	out := buf.String()
	assert.Less(t, bytes.Index([]byte(out), []byte("Added 1 total")), bytes.Index([]byte(out), []byte("Question:")))
}

func TestRootCmd_AddErrorIsReturned(t *testing.T) {
	ingestor := &ingestorStub{err: errors.New("embedding service down")}
	_, err := newTestCommand(t, &Services{Ingestor: ingestor}, "--add", "a.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service down")
}

func TestRootCmd_PublishQueuesPaths(t *testing.T) {
	queue := &queueStub{}
	ingestor := &ingestorStub{}
	buf, err := newTestCommand(t, &Services{Ingestor: ingestor, Queue: queue}, "--add", "a.pdf", "--add", "b.pdf", "--publish")

	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, queue.published)
	assert.Nil(t, ingestor.paths)
	assert.Contains(t, buf.String(), "Queued 2 paths for ingestion")
}

func TestRootCmd_PublishWithoutQueue(t *testing.T) {
	_, err := newTestCommand(t, &Services{Ingestor: &ingestorStub{}}, "--add", "a.pdf", "--publish")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS_URL")
}

func TestRootCmd_PublishRequiresAdd(t *testing.T) {
	_, err := newTestCommand(t, &Services{}, "--query", "q", "--publish")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--publish requires --add")
}

func TestRootCmd_RejectsStrayArguments(t *testing.T) {
	_, err := newTestCommand(t, &Services{}, "stray.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected arguments")
}

func TestRootCmd_NoFlagsPrintsHelpWithoutLoading(t *testing.T) {
	color.NoColor = true
	loaded := false
	cmd := NewRootCommand(func(context.Context) (*Services, func(), error) {
		loaded = true
		return &Services{}, nil, nil
	}, nil)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.False(t, loaded)
	assert.Contains(t, buf.String(), "--query")
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := NewRootCommand(nil, nil)

	topK := cmd.Flags().Lookup("top-k")
	require.NotNil(t, topK)
	assert.Equal(t, "k", topK.Shorthand)
	assert.Equal(t, "0", topK.DefValue)

	for _, name := range []string{"add", "query", "translate", "publish"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestTranslateCmd_PrintsOriginalAndTranslation(t *testing.T) {
	buf, err := newTestCommand(t, &Services{Translator: translatorStub{}}, "translate", "Hello!", "How are you?")

	require.NoError(t, err)
	assert.Equal(t, "Original text:\nHello! How are you?\n\nTranslated to Sinhala:\nSI:Hello! How are you?\n", buf.String())
}

func TestTranslateCmd_RequiresText(t *testing.T) {
	_, err := newTestCommand(t, &Services{Translator: translatorStub{}}, "translate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestServeCmd_RunsServeFunc(t *testing.T) {
	called := false
	cmd := NewRootCommand(nil, func(context.Context) error {
		called = true
		return nil
	})
	cmd.SetArgs([]string{"serve"})
	cmd.SetOut(new(bytes.Buffer))

	require.NoError(t, cmd.Execute())
	assert.True(t, called)
}
