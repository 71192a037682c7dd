// Package weaviate maintains the vector evidence index: reference
// documents are chunked, embedded and stored so groundedness judging can
// retrieve the passages that actually support an answer.
package weaviate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"hunter/src/core/evaluation"
	"hunter/src/log"
)

const (
	ClassName = "EvidencePassage"

	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
)

// Embedder turns text into a vector. The Ollama and OpenAI providers both
// satisfy it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the weaviate-backed evidence index. It implements
// evaluation.EvidenceRetriever: unseen reference documents are chunked,
// embedded and imported on first use, then queried by hybrid search.
type Index struct {
	client       *weaviate.Client
	embedder     Embedder
	chunkSize    int
	chunkOverlap int

	mu      sync.Mutex
	indexed map[string]struct{}
}

func NewIndex(client *weaviate.Client, embedder Embedder, chunkSize, chunkOverlap int) *Index {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}

	return &Index{
		client:       client,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		indexed:      make(map[string]struct{}),
	}
}

// DocumentID identifies a reference document by content hash, so the same
// document is indexed once no matter how many cases cite it.
func DocumentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// EnsureSchema creates the passage class if it does not exist yet.
func (x *Index) EnsureSchema(ctx context.Context) error {
	schema, err := x.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	for _, class := range schema.Classes {
		if class.Class == ClassName {
			return nil
		}
	}

	class := &models.Class{
		Class: ClassName,
		Properties: []*models.Property{
			{Name: "docId", DataType: []string{"string"}},
			{Name: "chunkIndex", DataType: []string{"number"}},
			{Name: "content", DataType: []string{"text"}},
		},
		Vectorizer: "none",
	}

	if err := x.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create evidence class: %w", err)
	}
	log.Info("created weaviate evidence class", "class", ClassName)
	return nil
}

// IndexDocuments chunks, embeds and imports the given documents. Documents
// already indexed in this process are skipped.
func (x *Index) IndexDocuments(ctx context.Context, documents []string) error {
	if err := x.EnsureSchema(ctx); err != nil {
		return err
	}

	var objects []*models.Object
	for _, doc := range documents {
		docID := DocumentID(doc)

		x.mu.Lock()
		_, done := x.indexed[docID]
		x.mu.Unlock()
		if done {
			continue
		}

		chunks, err := x.chunk(doc)
		if err != nil {
			return fmt.Errorf("failed to chunk document %s: %w", docID, err)
		}

		for i, chunk := range chunks {
			vector, err := x.embedder.Embed(ctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d of document %s: %w", i, docID, err)
			}
			objects = append(objects, &models.Object{
				Class:  ClassName,
				Vector: vector,
				Properties: map[string]interface{}{
					"docId":      docID,
					"chunkIndex": i,
					"content":    chunk,
				},
			})
		}

		x.mu.Lock()
		x.indexed[docID] = struct{}{}
		x.mu.Unlock()
	}

	if len(objects) == 0 {
		return nil
	}

	resp, err := x.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to import evidence passages: %w", err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("evidence import returned no results")
	}

	log.Debug("imported evidence passages", "passages", len(objects))
	return nil
}

// TopPassages returns the indexed passages from the given references most
// related to the query, by hybrid (vector + BM25) search.
func (x *Index) TopPassages(ctx context.Context, references []string, query string, limit int) ([]evaluation.Passage, error) {
	if err := x.IndexDocuments(ctx, references); err != nil {
		return nil, err
	}

	docIDs := make([]string, len(references))
	for i, doc := range references {
		docIDs[i] = DocumentID(doc)
	}

	vector, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hybrid := x.client.GraphQL().HybridArgumentBuilder().
		WithVector(vector).
		WithQuery(query).
		WithAlpha(0.75)

	where := filters.Where().
		WithPath([]string{"docId"}).
		WithOperator(filters.ContainsAny).
		WithValueText(docIDs...)

	if limit <= 0 {
		limit = evaluation.DefaultEvidenceTopK
	}

	result, err := x.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(
			graphql.Field{Name: "docId"},
			graphql.Field{Name: "content"},
			graphql.Field{Name: "_additional { score }"},
		).
		WithHybrid(hybrid).
		WithWhere(where).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence passages: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("evidence query failed: %s", result.Errors[0].Message)
	}

	return parsePassages(result.Data)
}

func parsePassages(data map[string]models.JSONObject) ([]evaluation.Passage, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := get[ClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	var passages []evaluation.Passage
	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		passage := evaluation.Passage{}
		if content, ok := objMap["content"].(string); ok {
			passage.Content = content
		}
		if docID, ok := objMap["docId"].(string); ok {
			passage.DocumentID = docID
		}
		if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
			// Hybrid search reports the fusion score as a string.
			switch score := additional["score"].(type) {
			case float64:
				passage.Score = score
			case string:
				fmt.Sscanf(score, "%f", &passage.Score)
			}
		}
		passages = append(passages, passage)
	}
	return passages, nil
}

func (x *Index) chunk(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(x.chunkSize),
		textsplitter.WithChunkOverlap(x.chunkOverlap),
	)
	return splitter.SplitText(text)
}
