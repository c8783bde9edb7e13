// File: internal/platform/elasticsearch/index.go
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

const ListingsIndexName = "marketplace_listings"

func keywordSubfield() map[string]interface{} {
	return map[string]interface{}{
		"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
	}
}

// defineListingsMapping returns the JSON string for the listings index mapping.
func defineListingsMapping() (string, error) {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"title":        map[string]interface{}{"type": "text", "fields": keywordSubfield()},
				"slug":         map[string]interface{}{"type": "keyword"},
				"listing_type": map[string]interface{}{"type": "keyword"},
				"status":       map[string]interface{}{"type": "keyword"},
				"plan":         map[string]interface{}{"type": "keyword"},
				"user_id":      map[string]interface{}{"type": "keyword"},
				"industry":     map[string]interface{}{"type": "keyword"},
				"country":      map[string]interface{}{"type": "keyword"},
				"city":         map[string]interface{}{"type": "keyword"},
				"image_url":    map[string]interface{}{"type": "keyword", "index": false},
				"created_at":   map[string]interface{}{"type": "date"},
				"updated_at":   map[string]interface{}{"type": "date"},
				// Shared across detail types
				"name":           map[string]interface{}{"type": "text", "fields": keywordSubfield()},
				"summary":        map[string]interface{}{"type": "text"},
				"year_founded":   map[string]interface{}{"type": "integer"},
				"price":          map[string]interface{}{"type": "double"},
				"annual_revenue": map[string]interface{}{"type": "double"},
				// Business sale
				"annual_profit":     map[string]interface{}{"type": "double"},
				"owner_involvement": map[string]interface{}{"type": "keyword"},
				// Franchise
				"total_units":        map[string]interface{}{"type": "integer"},
				"royalty_percentage": map[string]interface{}{"type": "double"},
				"support_provided":   map[string]interface{}{"type": "keyword"},
				// Investment
				"investment_type":           map[string]interface{}{"type": "keyword"},
				"minimum_investment":        map[string]interface{}{"type": "double"},
				"equity_offered_percentage": map[string]interface{}{"type": "double"},
			},
		},
	}
	mappingBytes, err := json.Marshal(mapping)
	if err != nil {
		return "", fmt.Errorf("error marshalling listings mapping to JSON: %w", err)
	}
	return string(mappingBytes), nil
}

// CreateListingsIndexIfNotExists creates the listings index with the defined mapping
// if it does not already exist.
func CreateListingsIndexIfNotExists(ctx context.Context, client *ESClientWrapper, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	req := esapi.IndicesExistsRequest{
		Index: []string{ListingsIndexName},
	}
	res, err := req.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error checking if listings index exists", zap.Error(err))
		return fmt.Errorf("error checking if listings index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Listings index already exists", zap.String("index_name", ListingsIndexName))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Error("Error checking if listings index exists, unexpected status",
			zap.String("status", res.Status()),
			zap.String("index_name", ListingsIndexName),
		)
		return fmt.Errorf("error checking if listings index exists: status %s", res.Status())
	}

	mappingJSON, err := defineListingsMapping()
	if err != nil {
		log.Error("Failed to define listings mapping", zap.Error(err))
		return err
	}
	log.Debug("Listings index mapping defined", zap.String("mapping", mappingJSON))

	createReq := esapi.IndicesCreateRequest{
		Index: ListingsIndexName,
		Body:  strings.NewReader(mappingJSON),
	}
	createRes, err := createReq.Do(ctx, client.Client)
	if err != nil {
		log.Error("Error creating listings index", zap.Error(err), zap.String("index_name", ListingsIndexName))
		return fmt.Errorf("error creating listings index %s: %w", ListingsIndexName, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		log.Error("Failed to create listings index",
			zap.String("status", createRes.Status()),
			zap.String("body", ResponseBodyToString(createRes)),
			zap.String("index_name", ListingsIndexName),
		)
		return fmt.Errorf("failed to create listings index %s: status %s", ListingsIndexName, createRes.Status())
	}

	log.Info("Listings index created successfully", zap.String("index_name", ListingsIndexName))
	return nil
}

// ResponseBodyToString reads a response body for logging.
func ResponseBodyToString(res *esapi.Response) string {
	if res == nil || res.Body == nil {
		return ""
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(res.Body); err != nil {
		return fmt.Sprintf("failed to read response body: %v", err)
	}
	return buf.String()
}
