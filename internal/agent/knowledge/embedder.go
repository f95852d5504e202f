package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/cloudwego/eino/components/embedding"
	"google.golang.org/genai"

	logx "github.com/autostream-sales-agent/server/pkg/logger"
)

// GeminiEmbedder embeds text with the Gemini embedding API.
type GeminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

var _ embedding.Embedder = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(client *genai.Client, model string, dimensions int) (*GeminiEmbedder, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini embedder: client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini embedder: model is required")
	}
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

func (e *GeminiEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	cfg := &genai.EmbedContentConfig{}
	if e.dimensions > 0 {
		cfg.OutputDimensionality = genai.Ptr(int32(e.dimensions))
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		logx.Error().Err(err).Str("model", e.model).Int("texts", len(texts)).Msg("Gemini embedding failed")
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed content: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vec := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}

// HashEmbedder is a deterministic bag-of-words embedder using feature hashing.
// It needs no network access and is used when no embedding provider is configured.
type HashEmbedder struct {
	dimensions int
}

var _ embedding.Embedder = (*HashEmbedder)(nil)

const defaultHashDimensions = 256

func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = defaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (e *HashEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		vec := make([]float64, e.dimensions)
		for _, w := range words(t) {
			if _, stop := stopwords[w]; stop || len(w) < 2 {
				continue
			}
			h := fnv.New32a()
			_, _ = h.Write([]byte(stemWord(w)))
			sum := h.Sum32()
			sign := 1.0
			if sum&1 == 1 {
				sign = -1.0
			}
			vec[int(sum>>1)%e.dimensions] += sign
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func stemWord(w string) string {
	if len(w) > 3 {
		return trimSuffixS(w)
	}
	return w
}

func trimSuffixS(w string) string {
	if n := len(w); n > 0 && w[n-1] == 's' {
		return w[:n-1]
	}
	return w
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	n := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= n
	}
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
