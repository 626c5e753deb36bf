package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"docrag/config"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/retriever"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

// IndexOpener connects to the configured vector index. The returned index
// must accept vectors of the given dimension.
type IndexOpener func(ctx context.Context, dimension int) (port.VectorIndex, error)

// ProgressFunc reports embedded chunks out of total.
type ProgressFunc func(done, total int)

// Request describes one document ingestion.
type Request struct {
	Path     string
	Config   *config.Config
	Progress ProgressFunc
}

// BuildResult carries the tool handed to the agent layer. Err is set when
// Tool is an error tool.
type BuildResult struct {
	Tool   port.Tool
	Err    *domain.PipelineError
	Result domain.IngestResult
}

// RAGToolUseCase turns one uploaded document into a retrieval tool:
// read, split, embed and store, then build the retriever.
type RAGToolUseCase struct {
	extractor port.Extractor
	embedder  port.Embedder
	openIndex IndexOpener
	logger    *zap.Logger
	tracer    trace.Tracer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRAGToolUseCase creates a new RAG tool use case.
func NewRAGToolUseCase(
	extractor port.Extractor,
	embedder port.Embedder,
	openIndex IndexOpener,
	log *zap.Logger,
) *RAGToolUseCase {
	return &RAGToolUseCase{
		extractor: extractor,
		embedder:  embedder,
		openIndex: openIndex,
		logger:    logger.OrNop(log),
		tracer:    otel.Tracer("docrag/usecase"),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Tool is Build without the diagnostics.
func (u *RAGToolUseCase) Tool(ctx context.Context, req Request) port.Tool {
	return u.Build(ctx, req).Tool
}

// Build runs the pipeline. It never fails: any stage error is reported
// through an error tool whose Invoke returns the failure message.
func (u *RAGToolUseCase) Build(ctx context.Context, req Request) BuildResult {
	cfg := req.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ingestID := uuid.NewString()
	log := u.logger.With(
		zap.String("ingest_id", ingestID),
		zap.String("path", req.Path),
		zap.String("collection", cfg.Store.Collection),
	)

	ctx, span := u.tracer.Start(ctx, "docrag.get_rag_tool")
	defer span.End()
	span.SetAttributes(
		attribute.String("docrag.ingest_id", ingestID),
		attribute.String("docrag.collection", cfg.Store.Collection),
	)

	result := domain.IngestResult{
		IngestID:   ingestID,
		Collection: cfg.Store.Collection,
		Source:     req.Path,
	}

	tool, perr := u.safeBuild(ctx, req, cfg, log, &result)
	if perr != nil {
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Message)
		log.Warn("pipeline failed",
			zap.String("stage", string(perr.Stage)),
			zap.String("kind", string(perr.Kind)),
			zap.Error(perr),
		)
		return BuildResult{Tool: errorTool(perr), Err: perr, Result: result}
	}

	log.Info("RAG tool ready", zap.Int("chunks", result.Chunks))
	return BuildResult{Tool: tool, Result: result}
}

// safeBuild turns a panic in any stage into a pipeline error so it never
// reaches the caller.
func (u *RAGToolUseCase) safeBuild(ctx context.Context, req Request, cfg *config.Config, log *zap.Logger, result *domain.IngestResult) (tool port.Tool, perr *domain.PipelineError) {
	stage := domain.StageRead
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline panicked", zap.String("stage", string(stage)), zap.Any("panic", r))
			tool = nil
			perr = domain.NewError(stage, panicKinds[stage],
				"unexpected failure during %s stage: %v", stage, r)
		}
	}()
	return u.build(ctx, req, cfg, log, result, &stage)
}

func (u *RAGToolUseCase) build(ctx context.Context, req Request, cfg *config.Config, log *zap.Logger, result *domain.IngestResult, stage *domain.Stage) (port.Tool, *domain.PipelineError) {
	doc := domain.NewDocument(generateDocID(req.Path), req.Path)

	// READ
	log.Info("reading document")
	text, perr := u.read(ctx, doc)
	if perr != nil {
		return nil, perr
	}
	result.Characters = len([]rune(text))

	// SPLIT
	*stage = domain.StageSplit
	log.Info("splitting document into chunks")
	chunks, perr := u.split(ctx, cfg.Chunking, doc, text)
	if perr != nil {
		return nil, perr
	}
	result.Chunks = len(chunks)

	// EMBED+STORE
	*stage = domain.StageStore
	log.Info("embedding and storing chunks", zap.Int("chunks", len(chunks)))
	index, perr := u.store(ctx, cfg, chunks, result.IngestID, req.Progress)
	if perr != nil {
		return nil, perr
	}
	result.Dimension = index.Dimension()

	// BUILD_RETRIEVER
	*stage = domain.StageRetriever
	log.Info("creating retriever tool")
	defer func() {
		if r := recover(); r != nil {
			closeIndex(index, log)
			panic(r)
		}
	}()
	tool, perr := u.buildRetriever(ctx, cfg, index, log)
	if perr != nil {
		closeIndex(index, log)
		return nil, perr
	}
	return tool, nil
}

func (u *RAGToolUseCase) read(ctx context.Context, doc domain.Document) (text string, perr *domain.PipelineError) {
	_, span := u.tracer.Start(ctx, "docrag.read")
	defer func() { endSpan(span, perr) }()
	span.SetAttributes(attribute.String("docrag.ext", doc.Ext))

	text, err := u.extractor.Extract(doc)
	if err != nil {
		if pe, ok := domain.AsPipelineError(err); ok {
			return "", pe
		}
		return "", domain.WrapError(domain.StageRead, domain.KindExtractionFailed, err, "failed to read %s", doc.Path)
	}
	return text, nil
}

func (u *RAGToolUseCase) split(ctx context.Context, cfg config.ChunkingConfig, doc domain.Document, text string) (chunks []domain.Chunk, perr *domain.PipelineError) {
	_, span := u.tracer.Start(ctx, "docrag.split")
	defer func() { endSpan(span, perr) }()

	c, err := chunker.NewRecursiveChunker(cfg.Size, cfg.Overlap)
	if err != nil {
		return nil, domain.WrapError(domain.StageSplit, domain.KindInvalidConfig, err, "invalid chunking settings")
	}

	chunks, err = c.Chunk(doc, text)
	if err != nil {
		return nil, domain.WrapError(domain.StageSplit, domain.KindNoChunksProduced, err, "could not split document into text chunks")
	}
	if len(chunks) == 0 {
		return nil, domain.NewError(domain.StageSplit, domain.KindNoChunksProduced, "could not split document into text chunks")
	}

	span.SetAttributes(attribute.Int("docrag.chunks", len(chunks)))
	return chunks, nil
}

// store opens the index and replaces the collection's contents with the
// embedded chunks. On success the caller owns the returned index; on failure
// it is closed here.
func (u *RAGToolUseCase) store(ctx context.Context, cfg *config.Config, chunks []domain.Chunk, ingestID string, progress ProgressFunc) (port.VectorIndex, *domain.PipelineError) {
	ctx, span := u.tracer.Start(ctx, "docrag.store")

	dimension := cfg.Embedding.Dimension
	idx, err := u.openIndex(ctx, dimension)
	if err == nil && idx == nil {
		err = fmt.Errorf("no index returned")
	}
	if err != nil {
		perr := domain.WrapError(domain.StageStore, domain.KindIndexConnection, err,
			"could not connect to vector index %q (expected dimension %d)", cfg.Store.IndexName, dimension)
		endSpan(span, perr)
		return nil, perr
	}

	defer func() {
		if r := recover(); r != nil {
			closeIndex(idx, u.logger)
			endSpan(span, nil)
			panic(r)
		}
	}()

	perr := u.fill(ctx, idx, cfg, chunks, ingestID, progress)
	if perr != nil {
		closeIndex(idx, u.logger)
		endSpan(span, perr)
		return nil, perr
	}

	span.SetAttributes(
		attribute.String("docrag.index", idx.Name()),
		attribute.Int("docrag.dimension", idx.Dimension()),
	)
	endSpan(span, nil)
	return idx, nil
}

// fill verifies idx and replaces the collection with the embedded chunks.
func (u *RAGToolUseCase) fill(ctx context.Context, idx port.VectorIndex, cfg *config.Config, chunks []domain.Chunk, ingestID string, progress ProgressFunc) *domain.PipelineError {
	collection := cfg.Store.Collection

	if idx.Dimension() != u.embedder.Dimension() {
		return domain.NewError(domain.StageStore, domain.KindIndexConnection,
			"vector index %q expects dimension %d but embedding model %s produces %d",
			idx.Name(), idx.Dimension(), u.embedder.ModelName(), u.embedder.Dimension())
	}
	if err := idx.Verify(ctx, collection); err != nil {
		return domain.WrapError(domain.StageStore, domain.KindIndexConnection, err,
			"vector index %q is not usable for collection %s (expected dimension %d)", idx.Name(), collection, idx.Dimension())
	}

	lock := u.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	if err := idx.Clear(ctx, collection); err != nil {
		return domain.WrapError(domain.StageStore, domain.KindIndexWrite, err, "failed to clear collection %s", collection)
	}

	entries, err := u.embedChunks(ctx, cfg.Embedding.BatchSize, chunks, ingestID, progress)
	if err != nil {
		return domain.WrapError(domain.StageStore, domain.KindIndexWrite, err, "failed to embed document chunks")
	}

	if err := idx.Upsert(ctx, collection, entries); err != nil {
		return domain.WrapError(domain.StageStore, domain.KindIndexWrite, err,
			"failed to store %d chunks in collection %s", len(entries), collection)
	}
	return nil
}

func (u *RAGToolUseCase) embedChunks(ctx context.Context, batchSize int, chunks []domain.Chunk, ingestID string, progress ProgressFunc) ([]domain.IndexEntry, error) {
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	entries := make([]domain.IndexEntry, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for i, c := range batch {
			entries = append(entries, newIndexEntry(c, vectors[i], ingestID))
		}
		if progress != nil {
			progress(end, len(chunks))
		}
	}
	return entries, nil
}

func newIndexEntry(c domain.Chunk, vector []float32, ingestID string) domain.IndexEntry {
	metadata := make(map[string]string, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		metadata[k] = v
	}
	metadata[domain.MetaChunkIndex] = strconv.Itoa(c.Index)
	metadata[domain.MetaIngestID] = ingestID

	return domain.IndexEntry{
		ID:       c.ID,
		Vector:   vector,
		Text:     c.Text,
		Metadata: metadata,
	}
}

func (u *RAGToolUseCase) buildRetriever(ctx context.Context, cfg *config.Config, index port.VectorIndex, log *zap.Logger) (tool port.Tool, perr *domain.PipelineError) {
	_, span := u.tracer.Start(ctx, "docrag.retriever")
	defer func() { endSpan(span, perr) }()

	semantic, err := retriever.NewSemanticRetriever(index, u.embedder, cfg.Store.Collection)
	if err != nil {
		return nil, domain.WrapError(domain.StageRetriever, domain.KindRetrieverConstruction, err, "failed to create retriever tool")
	}
	return retriever.NewRetrievalTool(semantic, cfg.Retrieval.TopK, log, index), nil
}

func (u *RAGToolUseCase) collectionLock(collection string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		u.locks[collection] = l
	}
	return l
}

var panicKinds = map[domain.Stage]domain.ErrorKind{
	domain.StageRead:      domain.KindExtractionFailed,
	domain.StageSplit:     domain.KindNoChunksProduced,
	domain.StageStore:     domain.KindIndexWrite,
	domain.StageRetriever: domain.KindRetrieverConstruction,
}

var errorToolDescriptions = map[domain.Stage]string{
	domain.StageRead:      "A dummy tool that reports a document reading error.",
	domain.StageSplit:     "A dummy tool that reports a document splitting error.",
	domain.StageStore:     "A dummy tool that reports a document storage error.",
	domain.StageRetriever: "A dummy tool that reports a retriever construction error.",
}

func errorTool(perr *domain.PipelineError) *retriever.ErrorTool {
	return retriever.NewErrorTool("Error: "+perr.Message, errorToolDescriptions[perr.Stage])
}

func endSpan(span trace.Span, perr *domain.PipelineError) {
	if perr != nil {
		span.SetAttributes(attribute.String("docrag.error_kind", string(perr.Kind)))
		span.SetStatus(codes.Error, perr.Message)
	}
	span.End()
}

func closeIndex(index port.VectorIndex, log *zap.Logger) {
	if err := index.Close(); err != nil {
		log.Warn("failed to close vector index", zap.String("index", index.Name()), zap.Error(err))
	}
}

// generateDocID creates a stable ID for a document based on its path.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
