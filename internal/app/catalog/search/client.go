// Package search содержит клиент поискового индекса товаров в Elasticsearch.
//
// PostgreSQL остается источником правды, индекс - это read-optimized проекция.
// Все операции записи и чтения индекса работают по принципу best-effort:
// сбой индекса никогда не прерывает запрос, который его вызвал.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"

	"github.com/elastic/go-elasticsearch/v8"
)

// mapping описывает схему индекса products
// name имеет completion подполе для саджестов и keyword подполе,
// brand - keyword подполе для точной фильтрации
const mapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "integer"},
			"name": {
				"type": "text",
				"fields": {
					"keyword": {"type": "keyword"},
					"suggest": {"type": "completion"}
				}
			},
			"slug": {"type": "keyword"},
			"sku": {"type": "keyword"},
			"description": {"type": "text"},
			"short_description": {"type": "text"},
			"category_id": {"type": "integer"},
			"category_name": {"type": "text"},
			"price": {"type": "float"},
			"brand": {
				"type": "text",
				"fields": {"keyword": {"type": "keyword"}}
			},
			"stock_quantity": {"type": "integer"},
			"is_active": {"type": "boolean"},
			"is_featured": {"type": "boolean"},
			"images": {"type": "keyword"},
			"thumbnail": {"type": "keyword"},
			"created_at": {"type": "date"},
			"updated_at": {"type": "date"}
		}
	}
}`

// ProductIndex - клиент индекса товаров
// Создается явно и передается в сервисы через конструктор,
// глобального singleton нет
type ProductIndex struct {
	es    *elasticsearch.Client
	index string
}

// NewElasticClient создает Elasticsearch клиент по адресу из конфигурации
func NewElasticClient(url string) (*elasticsearch.Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

// NewProductIndex создает клиент индекса товаров
func NewProductIndex(es *elasticsearch.Client, index string) *ProductIndex {
	return &ProductIndex{es: es, index: index}
}

// EnsureIndex создает индекс products если его еще нет
// Идемпотентна: повторные вызовы безопасны, "already exists" от
// конкурентного создания проглатывается
func (p *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.es.Indices.Exists(
		[]string{p.index},
		p.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	createRes, err := p.es.Indices.Create(
		p.index,
		p.es.Indices.Create.WithBody(strings.NewReader(mapping)),
		p.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		body, _ := io.ReadAll(createRes.Body)
		// Гонка двух ensureIndex: проверка существования прошла у обоих,
		// создать успел только один
		if strings.Contains(string(body), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("failed to create index [%s]: %s", createRes.Status(), body)
	}

	return nil
}

// Upsert индексирует документ товара, id документа = id товара
// Вызывается только после успешной записи в PostgreSQL и никогда
// не возвращает ошибку: запись уже закоммичена, сбой индекса не
// должен отменить операцию. Ни повторов, ни outbox, ни dead-letter
// очереди нет - попытка ровно одна.
func (p *ProductIndex) Upsert(ctx context.Context, doc entity.ProductDocument) {
	body, err := json.Marshal(doc)
	if err != nil {
		p.syncFailed("upsert", doc.ID, err)
		return
	}

	res, err := p.es.Index(
		p.index,
		bytes.NewReader(body),
		p.es.Index.WithDocumentID(strconv.FormatUint(uint64(doc.ID), 10)),
		p.es.Index.WithContext(ctx),
	)
	if err != nil {
		p.syncFailed("upsert", doc.ID, err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		p.syncFailed("upsert", doc.ID, fmt.Errorf("index error [%s]: %s", res.Status(), raw))
		return
	}

	metrics.RecordSearchSync("upsert")
}

// Remove удаляет документ товара из индекса, best-effort
// Отсутствие документа не считается сбоем
func (p *ProductIndex) Remove(ctx context.Context, id uint) {
	res, err := p.es.Delete(
		p.index,
		strconv.FormatUint(uint64(id), 10),
		p.es.Delete.WithContext(ctx),
	)
	if err != nil {
		p.syncFailed("delete", id, err)
		return
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		raw, _ := io.ReadAll(res.Body)
		p.syncFailed("delete", id, fmt.Errorf("delete error [%s]: %s", res.Status(), raw))
		return
	}

	metrics.RecordSearchSync("delete")
}

func (p *ProductIndex) syncFailed(op string, productID uint, err error) {
	metrics.RecordSearchSyncError(op)
	logger.Warn().
		Str("operation", op).
		Uint("product_id", productID).
		Err(err).
		Msg("Search index sync failed")
}
