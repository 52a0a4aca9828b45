package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Static embedder parameters.
const (
	StaticModelName  = "static-hash"
	StaticDimensions = 384

	wordWeight    = 0.7
	trigramWeight = 0.3
)

// englishStopWords are dropped before hashing so they do not dominate vectors.
var englishStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "with": true,
}

// StaticService embeds text by hashing words and character trigrams into a
// fixed-size vector. It needs no network or model download and is fully
// deterministic, at the cost of only lexical similarity.
type StaticService struct{}

// NewStaticService creates a static embedder.
func NewStaticService() *StaticService {
	return &StaticService{}
}

// Embed generates an embedding for document text.
func (s *StaticService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return staticVector(text), nil
}

// EmbedQuery generates an embedding for query text.
func (s *StaticService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
func (s *StaticService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = staticVector(text)
	}
	return out, nil
}

// Dimensions returns the embedding dimensions.
func (s *StaticService) Dimensions() int {
	return StaticDimensions
}

// Provider returns the provider name.
func (s *StaticService) Provider() Provider {
	return ProviderStatic
}

// ModelName returns the model name.
func (s *StaticService) ModelName() string {
	return StaticModelName
}

func staticVector(text string) []float32 {
	vec := make([]float32, StaticDimensions)

	words := tokenize(text)
	for _, w := range words {
		if englishStopWords[w] {
			continue
		}
		vec[hashToIndex(w)] += wordWeight
	}

	joined := strings.Join(words, " ")
	runes := []rune(joined)
	for i := 0; i+3 <= len(runes); i++ {
		vec[hashToIndex(string(runes[i:i+3]))] += trigramWeight
	}

	normalize(vec)
	return vec
}

// tokenize lowercases text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hashToIndex(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % StaticDimensions)
}

// normalize scales vec to unit length in place. A zero vector is left as is.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
