package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"productcatalog/internal/app/catalog/entity"
	"productcatalog/pkg/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitWithWriter("catalog-test", "error", io.Discard)
}

// fakeTransport подменяет HTTP транспорт Elasticsearch клиента
type fakeTransport struct {
	fn func(*http.Request) (*http.Response, error)
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.fn(req)
}

func newTestIndex(t *testing.T, fn func(*http.Request) (*http.Response, error)) *ProductIndex {
	t.Helper()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Transport: &fakeTransport{fn: fn},
	})
	require.NoError(t, err)

	return NewProductIndex(es, "products")
}

// jsonResponse собирает ответ с заголовком продукта, который проверяет клиент v8
func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header: http.Header{
			"X-Elastic-Product": []string{"Elasticsearch"},
			"Content-Type":      []string{"application/json"},
		},
		Body: io.NopCloser(strings.NewReader(body)),
	}
}

func decodeBody(t *testing.T, req *http.Request) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

const searchHits = `{
	"hits": {
		"total": {"value": 21},
		"hits": [
			{"_source": {"id": 42, "name": "Laptop", "is_active": true}},
			{"_source": {"id": 43, "name": "Laptop Stand", "is_active": true}}
		]
	}
}`

// ==================== Search Tests ====================

func TestSearch_QueryBody(t *testing.T) {
	var captured map[string]interface{}

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		captured = decodeBody(t, req)
		return jsonResponse(200, searchHits), nil
	})

	categoryID := uint(7)
	minPrice := 10.0
	result := index.Search(context.Background(), entity.SearchParams{
		Query:      "laptop",
		CategoryID: &categoryID,
		Brand:      "Acme",
		MinPrice:   &minPrice,
		InStock:    true,
		Page:       2,
		PageSize:   10,
	})

	require.NotNil(t, captured)

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})

	// Релевантность: multi_match с бустами и fuzziness
	must := boolQuery["must"].([]interface{})
	multiMatch := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "laptop", multiMatch["query"])
	assert.Equal(t, "AUTO", multiMatch["fuzziness"])
	assert.Contains(t, multiMatch["fields"], "name^3")
	assert.Contains(t, multiMatch["fields"], "brand^2")

	// is_active фильтр применяется всегда и идет первым
	filter := boolQuery["filter"].([]interface{})
	first := filter[0].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, true, first["is_active"])
	assert.Len(t, filter, 5)

	// Пагинация: from = (page-1) * size
	assert.Equal(t, float64(10), captured["from"])
	assert.Equal(t, float64(10), captured["size"])

	// Результат распарсен, TotalPages округлен вверх
	assert.Equal(t, int64(21), result.Total)
	assert.Equal(t, int64(3), result.TotalPages)
	assert.Len(t, result.Products, 2)
	assert.Equal(t, "Laptop", result.Products[0].Name)
}

func TestSearch_EmptyQueryUsesMatchAll(t *testing.T) {
	var captured map[string]interface{}

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		captured = decodeBody(t, req)
		return jsonResponse(200, searchHits), nil
	})

	index.Search(context.Background(), entity.SearchParams{Page: 1, PageSize: 20})

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	_, ok := must[0].(map[string]interface{})["match_all"]
	assert.True(t, ok)

	// Без фильтров остается только is_active
	filter := boolQuery["filter"].([]interface{})
	assert.Len(t, filter, 1)
}

func TestSearch_TransportErrorReturnsEmpty(t *testing.T) {
	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	result := index.Search(context.Background(), entity.SearchParams{Query: "laptop", Page: 3, PageSize: 10})

	// Пустой результат вместо ошибки, пагинация сохранена
	assert.Empty(t, result.Products)
	assert.Equal(t, int64(0), result.Total)
	assert.Equal(t, 3, result.Page)
	assert.Equal(t, 10, result.PageSize)
}

func TestSearch_ErrorResponseReturnsEmpty(t *testing.T) {
	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(500, `{"error": "search_phase_execution_exception"}`), nil
	})

	result := index.Search(context.Background(), entity.SearchParams{Query: "laptop"})

	assert.Empty(t, result.Products)
	assert.Equal(t, int64(0), result.TotalPages)
}

func TestSearch_PageSizeClamped(t *testing.T) {
	var captured map[string]interface{}

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		captured = decodeBody(t, req)
		return jsonResponse(200, searchHits), nil
	})

	result := index.Search(context.Background(), entity.SearchParams{PageSize: 500})

	assert.Equal(t, float64(100), captured["size"])
	assert.Equal(t, 100, result.PageSize)
	assert.Equal(t, 1, result.Page)
}

// ==================== Suggest Tests ====================

func TestSuggest_DedupAndCap(t *testing.T) {
	body := `{
		"suggest": {
			"product-suggest": [
				{"options": [
					{"text": "Laptop"},
					{"text": "Laptop"},
					{"text": "Laptop Stand"},
					{"text": "Laptop Bag"}
				]}
			]
		}
	}`

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, body), nil
	})

	suggestions := index.Suggest(context.Background(), "lap", 2)

	assert.Equal(t, []string{"Laptop", "Laptop Stand"}, suggestions)
}

func TestSuggest_EmptyPrefixSkipsRequest(t *testing.T) {
	called := false
	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(200, `{}`), nil
	})

	suggestions := index.Suggest(context.Background(), "", 5)

	assert.Empty(t, suggestions)
	assert.False(t, called)
}

func TestSuggest_FailureReturnsEmpty(t *testing.T) {
	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	suggestions := index.Suggest(context.Background(), "lap", 5)

	assert.Empty(t, suggestions)
}

func TestSuggest_RequestBody(t *testing.T) {
	var captured map[string]interface{}

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		captured = decodeBody(t, req)
		return jsonResponse(200, `{"suggest": {"product-suggest": []}}`), nil
	})

	index.Suggest(context.Background(), "lap", 5)

	completion := captured["suggest"].(map[string]interface{})["product-suggest"].(map[string]interface{})["completion"].(map[string]interface{})
	assert.Equal(t, "name.suggest", completion["field"])
	assert.Equal(t, true, completion["skip_duplicates"])
	assert.Equal(t, float64(5), completion["size"])
}

func TestSuggest_SizeClamped(t *testing.T) {
	var captured map[string]interface{}

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		captured = decodeBody(t, req)
		return jsonResponse(200, `{"suggest": {"product-suggest": []}}`), nil
	})

	index.Suggest(context.Background(), "lap", 100000)

	// Запрошенный size не уходит в индекс без верхней границы
	completion := captured["suggest"].(map[string]interface{})["product-suggest"].(map[string]interface{})["completion"].(map[string]interface{})
	assert.Equal(t, float64(MaxSuggestSize), completion["size"])
}

// ==================== Upsert / Remove Tests ====================

func TestUpsert_UsesProductIDAsDocumentID(t *testing.T) {
	var capturedPath string

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		capturedPath = req.URL.Path
		return jsonResponse(201, `{"result": "created"}`), nil
	})

	index.Upsert(context.Background(), entity.ProductDocument{ID: 42, Name: "Laptop", CreatedAt: time.Now()})

	assert.Equal(t, "/products/_doc/42", capturedPath)
}

func TestUpsert_FailureDoesNotPanic(t *testing.T) {
	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	// Best-effort: сбой проглатывается
	index.Upsert(context.Background(), entity.ProductDocument{ID: 42})
}

func TestRemove_MissingDocumentIsNotFailure(t *testing.T) {
	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"result": "not_found"}`), nil
	})

	index.Remove(context.Background(), 42)
}

// ==================== EnsureIndex Tests ====================

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	createCalled := false

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodHead {
			return jsonResponse(200, ""), nil
		}
		createCalled = true
		return jsonResponse(200, `{"acknowledged": true}`), nil
	})

	err := index.EnsureIndex(context.Background())

	require.NoError(t, err)
	assert.False(t, createCalled)
}

func TestEnsureIndex_CreatesWithMapping(t *testing.T) {
	var captured map[string]interface{}

	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodHead {
			return jsonResponse(404, ""), nil
		}
		captured = decodeBody(t, req)
		return jsonResponse(200, `{"acknowledged": true}`), nil
	})

	err := index.EnsureIndex(context.Background())
	require.NoError(t, err)

	props := captured["mappings"].(map[string]interface{})["properties"].(map[string]interface{})
	name := props["name"].(map[string]interface{})
	suggest := name["fields"].(map[string]interface{})["suggest"].(map[string]interface{})
	assert.Equal(t, "completion", suggest["type"])
}

func TestEnsureIndex_ConcurrentCreateSwallowed(t *testing.T) {
	index := newTestIndex(t, func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodHead {
			return jsonResponse(404, ""), nil
		}
		return jsonResponse(400, `{"error": {"type": "resource_already_exists_exception"}}`), nil
	})

	err := index.EnsureIndex(context.Background())

	assert.NoError(t, err)
}
