package selector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/loqalabs/loqa-dictate/internal/embed"
	"github.com/loqalabs/loqa-dictate/internal/jargon"
)

// Scorer rates how well text matches each profile. Scores are in [0, 1];
// profiles left out of the map scored zero.
type Scorer interface {
	Score(ctx context.Context, text string, profiles []jargon.Profile) (map[string]float64, error)
}

// Lexical scores profiles by token overlap with their terms and corrections.
type Lexical struct{}

func (Lexical) Score(_ context.Context, text string, profiles []jargon.Profile) (map[string]float64, error) {
	ctxTokens := Tokenize(text)
	scores := make(map[string]float64, len(profiles))
	if len(ctxTokens) == 0 {
		return scores, nil
	}
	for _, p := range profiles {
		var score float64
		for _, term := range p.Terms {
			score += overlap(ctxTokens, Tokenize(term))
		}
		for _, c := range p.Corrections {
			score += 1.2 * overlap(ctxTokens, Tokenize(c.From))
			score += overlap(ctxTokens, Tokenize(c.To))
		}
		norm := max(float64(len(p.Terms))+1.5*float64(len(p.Corrections)), 1)
		if s := clamp01(score / norm); s > 0 {
			scores[p.ID] = s
		}
	}
	return scores, nil
}

// Tokenize splits text on anything but letters, digits, '+' and '#', lowercases
// and keeps tokens longer than one byte.
func Tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if len(f) > 1 {
			out[f] = struct{}{}
		}
	}
	return out
}

func overlap(text, candidate map[string]struct{}) float64 {
	if len(candidate) == 0 {
		return 0
	}
	n := 0
	for t := range candidate {
		if _, ok := text[t]; ok {
			n++
		}
	}
	return float64(n) / float64(len(candidate))
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// Embedding scores profiles by cosine similarity between the text and a
// prototype built from each profile's label and terms. Prototype vectors are
// cached by profile content.
type Embedding struct {
	embedder embed.Embedder

	mu    sync.Mutex
	cache map[string][]float32
}

func NewEmbedding(embedder embed.Embedder) *Embedding {
	return &Embedding{embedder: embedder, cache: make(map[string][]float32)}
}

func (e *Embedding) Score(ctx context.Context, text string, profiles []jargon.Profile) (map[string]float64, error) {
	scores := make(map[string]float64, len(profiles))
	if strings.TrimSpace(text) == "" || len(profiles) == 0 {
		return scores, nil
	}

	vectors, err := e.prototypes(ctx, profiles)
	if err != nil {
		return nil, err
	}
	query, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	query = embed.NormalizeL2(query)
	for i, p := range profiles {
		sim, err := embed.Cosine(query, vectors[i])
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", p.ID, err)
		}
		if s := clamp01(sim); s > 0 {
			scores[p.ID] = s
		}
	}
	return scores, nil
}

func (e *Embedding) prototypes(ctx context.Context, profiles []jargon.Profile) ([][]float32, error) {
	out := make([][]float32, len(profiles))
	var missing []int
	var texts []string

	e.mu.Lock()
	for i, p := range profiles {
		if v, ok := e.cache[prototypeText(p)]; ok {
			out[i] = v
			continue
		}
		missing = append(missing, i)
		texts = append(texts, prototypeText(p))
	}
	e.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed profiles: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed profiles: got %d vectors for %d profiles", len(vecs), len(texts))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for j, i := range missing {
		v := embed.NormalizeL2(vecs[j])
		e.cache[texts[j]] = v
		out[i] = v
	}
	return out, nil
}

// prototypeText doubles as the cache key, so edited profiles are re-embedded.
func prototypeText(p jargon.Profile) string {
	return p.Label + ": " + strings.Join(p.Terms, ", ")
}
