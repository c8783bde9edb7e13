// File: internal/listing/esutil/indexer.go
package esutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"marketplace_backend/internal/listing"
	"marketplace_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Indexer writes approved listings to the search index.
type Indexer struct {
	client *elasticsearch.ESClientWrapper
	index  string
	logger *zap.Logger
}

var _ listing.Indexer = (*Indexer)(nil)

// NewIndexer returns an Elasticsearch-backed indexer, or a no-op one when
// search is not configured.
func NewIndexer(client *elasticsearch.ESClientWrapper, logger *zap.Logger) listing.Indexer {
	if client == nil {
		return listing.NopIndexer{}
	}
	return &Indexer{client: client, index: elasticsearch.ListingsIndexName, logger: logger.Named("ListingIndexer")}
}

func (i *Indexer) Index(ctx context.Context, l *listing.Listing) error {
	body, err := ListingToElasticsearchDoc(l)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: l.ID.String(),
		Body:       strings.NewReader(body),
	}
	res, err := req.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("error indexing listing %s: %w", l.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("error indexing listing %s: status %s: %s", l.ID, res.Status(), elasticsearch.ResponseBodyToString(res))
	}
	i.logger.Debug("Listing indexed", zap.String("listingID", l.ID.String()))
	return nil
}

// Delete removes a listing from the index. A missing document is not an error.
func (i *Indexer) Delete(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      i.index,
		DocumentID: id.String(),
	}
	res, err := req.Do(ctx, i.client.Client)
	if err != nil {
		return fmt.Errorf("error deleting listing %s from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error deleting listing %s from index: status %s", id, res.Status())
	}
	return nil
}

// ListingSource pages through listings that belong in the index.
type ListingSource interface {
	FindAllForSync(ctx context.Context, offset, limit int) ([]listing.Listing, error)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
	} `json:"items"`
}

// SyncAll re-indexes every listing from source in batches and returns how
// many documents were accepted.
func (i *Indexer) SyncAll(ctx context.Context, source ListingSource, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	indexed := 0
	for offset := 0; ; offset += batchSize {
		batch, err := source.FindAllForSync(ctx, offset, batchSize)
		if err != nil {
			return indexed, err
		}
		if len(batch) == 0 {
			return indexed, nil
		}
		n, err := i.bulkIndex(ctx, batch)
		indexed += n
		if err != nil {
			return indexed, err
		}
		i.logger.Info("Indexed listing batch", zap.Int("offset", offset), zap.Int("count", n))
		if len(batch) < batchSize {
			return indexed, nil
		}
	}
}

func (i *Indexer) bulkIndex(ctx context.Context, batch []listing.Listing) (int, error) {
	var buf bytes.Buffer
	for idx := range batch {
		l := &batch[idx]
		meta, err := json.Marshal(map[string]interface{}{
			"index": map[string]string{"_index": i.index, "_id": l.ID.String()},
		})
		if err != nil {
			return 0, err
		}
		doc, err := ListingToElasticsearchDoc(l)
		if err != nil {
			return 0, err
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.WriteString(doc)
		buf.WriteByte('\n')
	}

	res, err := esapi.BulkRequest{Body: &buf}.Do(ctx, i.client.Client)
	if err != nil {
		return 0, fmt.Errorf("bulk index request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("bulk index request failed: status %s", res.Status())
	}

	var parsed bulkResponse
	if err := elasticsearch.DecodeResponse(res, &parsed); err != nil {
		return 0, err
	}
	failed := 0
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Status >= 300 {
				failed++
				i.logger.Warn("Listing rejected by bulk index", zap.String("listingID", result.ID), zap.Int("status", result.Status))
			}
		}
	}
	if failed > 0 {
		return len(batch) - failed, fmt.Errorf("%d of %d listings failed to index", failed, len(batch))
	}
	return len(batch), nil
}
