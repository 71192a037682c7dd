// Package elastic is the BM25 evidence index: the keyword-search
// counterpart to the weaviate vector index, behind the same retriever
// contract.
package elastic

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tmc/langchaingo/textsplitter"

	"hunter/src/core/evaluation"
	"hunter/src/log"
)

const (
	IndexName = "evidence-passages"

	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
)

var indexMapping = `{
	"mappings": {
		"properties": {
			"docId":      {"type": "keyword"},
			"chunkIndex": {"type": "integer"},
			"content":    {"type": "text"}
		}
	}
}`

// Index is the elasticsearch-backed evidence index. It implements
// evaluation.EvidenceRetriever with plain BM25 ranking, so it works
// without any embedding model.
type Index struct {
	client       *elasticsearch.Client
	chunkSize    int
	chunkOverlap int

	mu      sync.Mutex
	indexed map[string]struct{}
}

func NewIndex(client *elasticsearch.Client, chunkSize, chunkOverlap int) *Index {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}

	return &Index{
		client:       client,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		indexed:      make(map[string]struct{}),
	}
}

// DocumentID identifies a reference document by content hash.
func DocumentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// EnsureIndex creates the passage index if it does not exist yet.
func (x *Index) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{IndexName}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = x.client.Indices.Create(
		IndexName,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create evidence index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("failed to create evidence index: %s", responseError(res))
	}

	log.Info("created elasticsearch evidence index", "index", IndexName)
	return nil
}

// IndexDocuments chunks and stores the given documents. Documents already
// indexed in this process are skipped; document IDs are deterministic, so
// re-indexing across restarts only overwrites identical passages.
func (x *Index) IndexDocuments(ctx context.Context, documents []string) error {
	if err := x.EnsureIndex(ctx); err != nil {
		return err
	}

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
			body, err := json.Marshal(map[string]interface{}{
				"docId":      docID,
				"chunkIndex": i,
				"content":    chunk,
			})
			if err != nil {
				return fmt.Errorf("failed to marshal passage: %w", err)
			}

			res, err := x.client.Index(
				IndexName,
				bytes.NewReader(body),
				x.client.Index.WithContext(ctx),
				x.client.Index.WithDocumentID(fmt.Sprintf("%s-%d", docID, i)),
			)
			if err != nil {
				return fmt.Errorf("failed to index passage %s-%d: %w", docID, i, err)
			}
			res.Body.Close()
			if res.IsError() {
				return fmt.Errorf("failed to index passage %s-%d: %s", docID, i, res.Status())
			}
		}

		x.mu.Lock()
		x.indexed[docID] = struct{}{}
		x.mu.Unlock()
	}
	return nil
}

// TopPassages returns the BM25-ranked passages from the given references
// most related to the query.
func (x *Index) TopPassages(ctx context.Context, references []string, query string, limit int) ([]evaluation.Passage, error) {
	if err := x.IndexDocuments(ctx, references); err != nil {
		return nil, err
	}

	docIDs := make([]string, len(references))
	for i, doc := range references {
		docIDs[i] = DocumentID(doc)
	}

	if limit <= 0 {
		limit = evaluation.DefaultEvidenceTopK
	}

	searchBody, err := json.Marshal(map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"match": map[string]interface{}{"content": query},
				},
				"filter": map[string]interface{}{
					"terms": map[string]interface{}{"docId": docIDs},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(IndexName),
		x.client.Search.WithBody(bytes.NewReader(searchBody)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search evidence passages: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("evidence search failed: %s", responseError(res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					DocID   string `json:"docId"`
					Content string `json:"content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	passages := make([]evaluation.Passage, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		passages = append(passages, evaluation.Passage{
			Content:    hit.Source.Content,
			DocumentID: hit.Source.DocID,
			Score:      hit.Score,
		})
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

func responseError(res *esapi.Response) string {
	body, err := io.ReadAll(res.Body)
	if err != nil || len(body) == 0 {
		return res.Status()
	}
	return fmt.Sprintf("%s: %s", res.Status(), bytes.TrimSpace(body))
}
