package knowledge

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/singleflight"

	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
	DefaultTopK         = 3

	MetaSourceID = "source_id"
	MetaChunk    = "chunk"
)

// IndexConfig configures an in-memory vector index over knowledge base documents.
type IndexConfig struct {
	Embedder     embedding.Embedder
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// Index is an eino retriever over the chunked knowledge base. The index is built
// on first use and is read-only afterwards; a failed build is retried on the next call.
type Index struct {
	docs     []*schema.Document
	embedder embedding.Embedder
	splitter textsplitter.RecursiveCharacter
	topK     int

	build singleflight.Group

	mu      sync.RWMutex
	chunks  []*schema.Document
	vectors [][]float64
	ready   bool
}

var _ retriever.Retriever = (*Index)(nil)

func NewIndex(docs []*schema.Document, cfg IndexConfig) (*Index, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("index: embedder is required")
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("index: no documents")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	return &Index{
		docs:     docs,
		embedder: cfg.Embedder,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
		topK: cfg.TopK,
	}, nil
}

// Build embeds every chunk. Concurrent callers share one build.
func (ix *Index) Build(ctx context.Context) error {
	ix.mu.RLock()
	ready := ix.ready
	ix.mu.RUnlock()
	if ready {
		return nil
	}

	_, err, _ := ix.build.Do("build", func() (any, error) {
		ix.mu.RLock()
		ready := ix.ready
		ix.mu.RUnlock()
		if ready {
			return nil, nil
		}

		chunks, err := ix.split()
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		vectors, err := ix.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(chunks) {
			return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
		}
		ix.mu.Lock()
		ix.chunks = chunks
		ix.vectors = vectors
		ix.ready = true
		ix.mu.Unlock()

		logx.Info().Int("documents", len(ix.docs)).Int("chunks", len(chunks)).Msg("Knowledge index built")
		return nil, nil
	})
	return err
}

func (ix *Index) split() ([]*schema.Document, error) {
	var chunks []*schema.Document
	for _, doc := range ix.docs {
		parts, err := ix.splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", doc.ID, err)
		}
		for i, part := range parts {
			meta := make(map[string]any, len(doc.MetaData)+2)
			for k, v := range doc.MetaData {
				meta[k] = v
			}
			meta[MetaSourceID] = doc.ID
			meta[MetaChunk] = i
			chunks = append(chunks, &schema.Document{
				ID:       fmt.Sprintf("%s#%d", doc.ID, i),
				Content:  part,
				MetaData: meta,
			})
		}
	}
	return chunks, nil
}

// Len reports the number of indexed chunks, zero before the first build.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Retrieve returns the top-k chunks by cosine similarity, best first.
func (ix *Index) Retrieve(ctx context.Context, query string, opts ...retriever.Option) (docs []*schema.Document, err error) {
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &ix.topK}, opts...)
	topK := ix.topK
	if options.TopK != nil && *options.TopK > 0 {
		topK = *options.TopK
	}

	ctx = callbacks.OnStart(ctx, &retriever.CallbackInput{
		Query:          query,
		TopK:           topK,
		ScoreThreshold: options.ScoreThreshold,
	})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
			return
		}
		callbacks.OnEnd(ctx, &retriever.CallbackOutput{Docs: docs})
	}()

	if err = ix.Build(ctx); err != nil {
		return nil, err
	}

	vectors, err := ix.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	qv := vectors[0]

	ix.mu.RLock()
	type scored struct {
		doc   *schema.Document
		score float64
	}
	ranked := make([]scored, 0, len(ix.chunks))
	for i, c := range ix.chunks {
		s := cosine(qv, ix.vectors[i])
		if options.ScoreThreshold != nil && s < *options.ScoreThreshold {
			continue
		}
		ranked = append(ranked, scored{doc: c, score: s})
	}
	ix.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	docs = make([]*schema.Document, 0, len(ranked))
	for _, r := range ranked {
		meta := make(map[string]any, len(r.doc.MetaData))
		for k, v := range r.doc.MetaData {
			meta[k] = v
		}
		out := &schema.Document{ID: r.doc.ID, Content: r.doc.Content, MetaData: meta}
		docs = append(docs, out.WithScore(r.score))
	}
	return docs, nil
}

func (ix *Index) GetType() string { return "KnowledgeIndex" }

func (ix *Index) IsCallbacksEnabled() bool { return true }
