package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/pkg/logger"
	"productcatalog/pkg/metrics"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// DefaultSuggestSize - число саджестов по умолчанию
	DefaultSuggestSize = 5
	// MaxSuggestSize - верхняя граница size для completion suggester
	MaxSuggestSize = 20
)

// Search выполняет поиск товаров по тексту и фильтрам
// При любом сбое индекса возвращает пустой результат, а не ошибку:
// по форме ответа нельзя отличить "ничего не найдено" от "индекс
// недоступен" - это принятая неоднозначность контракта
func (p *ProductIndex) Search(ctx context.Context, params entity.SearchParams) entity.SearchResult {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	empty := entity.SearchResult{
		Products:   []entity.ProductDocument{},
		Total:      0,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: 0,
	}

	body, err := json.Marshal(buildSearchBody(params))
	if err != nil {
		p.queryFailed("search", err)
		return empty
	}

	res, err := p.es.Search(
		p.es.Search.WithContext(ctx),
		p.es.Search.WithIndex(p.index),
		p.es.Search.WithBody(bytes.NewReader(body)),
		p.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		p.queryFailed("search", err)
		return empty
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		p.queryFailed("search", fmt.Errorf("search error [%s]: %s", res.Status(), raw))
		return empty
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		p.queryFailed("search", err)
		return empty
	}

	products := make([]entity.ProductDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		products = append(products, hit.Source)
	}

	total := parsed.Hits.Total.Value
	pageSize := int64(params.PageSize)

	metrics.RecordSearchQuery("search")

	return entity.SearchResult{
		Products:   products,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}

// buildSearchBody строит тело запроса к Elasticsearch
//
// Релевантность: multi_match по name (boost x3), description, brand (boost x2)
// и sku с fuzziness AUTO (допуск опечаток растет с длиной терма).
// Без текста запрос вырождается в match_all.
//
// Фильтры не влияют на score. is_active == true применяется всегда:
// неактивные товары не попадают в поиск ни при каких фильтрах.
func buildSearchBody(params entity.SearchParams) map[string]interface{} {
	var must []interface{}

	if params.Query != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     params.Query,
				"fields":    []string{"name^3", "description", "brand^2", "sku"},
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]interface{}{
			"match_all": map[string]interface{}{},
		})
	}

	filter := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"is_active": true},
		},
	}

	if params.CategoryID != nil {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category_id": *params.CategoryID},
		})
	}

	if params.Brand != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"brand.keyword": params.Brand},
		})
	}

	if params.MinPrice != nil || params.MaxPrice != nil {
		priceRange := map[string]interface{}{}
		if params.MinPrice != nil {
			priceRange["gte"] = *params.MinPrice
		}
		if params.MaxPrice != nil {
			priceRange["lte"] = *params.MaxPrice
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"price": priceRange},
		})
	}

	if params.InStock {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"stock_quantity": map[string]interface{}{"gt": 0}},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"from": (params.Page - 1) * params.PageSize,
		"size": params.PageSize,
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}
}

// Suggest возвращает до size автодополнений названия товара по префиксу
// Пустой префикс и любой сбой дают пустой список
func (p *ProductIndex) Suggest(ctx context.Context, prefix string, size int) []string {
	if prefix == "" {
		return []string{}
	}
	if size < 1 {
		size = DefaultSuggestSize
	}
	if size > MaxSuggestSize {
		size = MaxSuggestSize
	}

	body := map[string]interface{}{
		"suggest": map[string]interface{}{
			"product-suggest": map[string]interface{}{
				"prefix": prefix,
				"completion": map[string]interface{}{
					"field":           "name.suggest",
					"size":            size,
					"skip_duplicates": true,
				},
			},
		},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		p.queryFailed("suggest", err)
		return []string{}
	}

	res, err := p.es.Search(
		p.es.Search.WithContext(ctx),
		p.es.Search.WithIndex(p.index),
		p.es.Search.WithBody(bytes.NewReader(raw)),
	)
	if err != nil {
		p.queryFailed("suggest", err)
		return []string{}
	}
	defer res.Body.Close()

	if res.IsError() {
		errBody, _ := io.ReadAll(res.Body)
		p.queryFailed("suggest", fmt.Errorf("suggest error [%s]: %s", res.Status(), errBody))
		return []string{}
	}

	var parsed suggestResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		p.queryFailed("suggest", err)
		return []string{}
	}

	metrics.RecordSearchQuery("suggest")

	// Дедупликация одинаковых текстов с сохранением порядка
	seen := make(map[string]struct{})
	suggestions := make([]string, 0, size)
	for _, entry := range parsed.Suggest["product-suggest"] {
		for _, option := range entry.Options {
			if _, ok := seen[option.Text]; ok {
				continue
			}
			seen[option.Text] = struct{}{}
			suggestions = append(suggestions, option.Text)
			if len(suggestions) == size {
				return suggestions
			}
		}
	}

	return suggestions
}

func (p *ProductIndex) queryFailed(op string, err error) {
	metrics.RecordSearchQueryError(op)
	logger.Warn().
		Str("operation", op).
		Err(err).
		Msg("Search query failed, returning empty result")
}

// searchResponse - минимальный разбор ответа Elasticsearch
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source entity.ProductDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type suggestResponse struct {
	Suggest map[string][]struct {
		Options []struct {
			Text string `json:"text"`
		} `json:"options"`
	} `json:"suggest"`
}
