package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pedalacom/catalog-api/internal/database"
	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/service"
)

func TestCatalogReadEndpoints(t *testing.T) {
	srv := newCatalogTestServer(t, catalogTestServerOptions{})

	resp, env := doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products", nil, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("list products failed: status=%d", resp.StatusCode)
	}
	var products []domain.Product
	decodeData(t, env, &products)
	if len(products) != database.SampleProductCount {
		t.Fatalf("expected %d products, got %d", database.SampleProductCount, len(products))
	}
	if env.Meta.RequestID == "" {
		t.Fatal("expected request id in envelope meta")
	}

	id := products[0].ID
	resp, env = doJSON(t, srv.client, http.MethodGet, fmt.Sprintf("%s/api/v1/products/%d", srv.baseURL, id), nil, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("get product failed: status=%d", resp.StatusCode)
	}
	var product domain.Product
	decodeData(t, env, &product)
	if product.ProductCategory == nil || product.ProductModel == nil {
		t.Fatalf("expected category and model to be expanded, got %+v", product)
	}

	resp, env = doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products/999999", nil, nil)
	if resp.StatusCode != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got status=%d error=%#v", resp.StatusCode, env.Error)
	}

	resp, env = doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/categories", nil, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("list categories failed: status=%d", resp.StatusCode)
	}
	var categories []domain.ProductCategory
	decodeData(t, env, &categories)
	if len(categories) == 0 {
		t.Fatal("expected seeded categories")
	}
}

func TestCatalogQuickSearchPagination(t *testing.T) {
	srv := newCatalogTestServer(t, catalogTestServerOptions{})

	resp, env := doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products/search?searchData=mountain", nil, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("quick search failed: status=%d", resp.StatusCode)
	}
	var result service.SearchResult
	decodeData(t, env, &result)
	if result.Pagination.TotalItems != 4 || result.Pagination.TotalPages != 1 {
		t.Fatalf("expected 4 mountain matches on one page, got %+v", result.Pagination)
	}
	if result.Pagination.PageSize != service.NameSearchPageSize {
		t.Fatalf("expected page size %d, got %d", service.NameSearchPageSize, result.Pagination.PageSize)
	}

	resp, env = doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products/search?searchData=&pageNumber=2", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected second page of all products, got %d", resp.StatusCode)
	}
	decodeData(t, env, &result)
	if len(result.Items) != database.SampleProductCount-service.NameSearchPageSize {
		t.Fatalf("expected %d items on last page, got %d", database.SampleProductCount-service.NameSearchPageSize, len(result.Items))
	}

	resp, env = doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products/search?searchData=mountain&pageNumber=2", nil, nil)
	if resp.StatusCode != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected out of range page to be NOT_FOUND, got status=%d", resp.StatusCode)
	}

	resp, _ = doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products/search?pageNumber=abc", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-integer page, got %d", resp.StatusCode)
	}

	resp, env = doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products/search?searchData=unicycle", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected empty search to succeed, got %d", resp.StatusCode)
	}
	decodeData(t, env, &result)
	if len(result.Items) != 0 || result.Pagination.TotalPages != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestCatalogCategorySearch(t *testing.T) {
	srv := newCatalogTestServer(t, catalogTestServerOptions{})

	resp, env := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products/search", map[string]any{
		"categories":  []string{"Road Bikes", "Mountain Bikes"},
		"search_data": "",
		"page_number": 1,
	}, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("category search failed: status=%d", resp.StatusCode)
	}
	var result service.SearchResult
	decodeData(t, env, &result)
	if result.Pagination.TotalItems != 5 || len(result.Items) != 5 {
		t.Fatalf("expected 5 bikes, got %+v", result.Pagination)
	}
	for _, item := range result.Items {
		if item.CategoryName != "Road Bikes" && item.CategoryName != "Mountain Bikes" {
			t.Fatalf("unexpected category in results: %+v", item)
		}
	}

	resp, env = doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products/search", map[string]any{
		"categories":  []string{"Helmets"},
		"search_data": "black",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected default page to succeed, got %d", resp.StatusCode)
	}
	decodeData(t, env, &result)
	if result.Pagination.TotalItems != 1 || result.Items[0].ProductName != "Sport-100 Helmet, Black" {
		t.Fatalf("expected only the black helmet, got %+v", result.Items)
	}

	resp, env = doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products/search", map[string]any{
		"page_number": 0,
	}, nil)
	if resp.StatusCode != http.StatusNotFound || env.Error == nil {
		t.Fatalf("expected page 0 to be NOT_FOUND, got status=%d", resp.StatusCode)
	}
}

func TestCatalogMutationLifecycle(t *testing.T) {
	srv := newCatalogTestServer(t, catalogTestServerOptions{})

	resp, env := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", map[string]any{
		"name":           "Touring Pedal",
		"product_number": "PD-T852",
		"color":          "Silver",
		"standard_cost":  35.96,
		"list_price":     80.99,
	}, nil)
	if resp.StatusCode != http.StatusCreated || !env.Success {
		t.Fatalf("create failed: status=%d error=%#v", resp.StatusCode, env.Error)
	}
	var created domain.Product
	decodeData(t, env, &created)
	if created.ID == 0 || created.RowVersion != 1 {
		t.Fatalf("unexpected created product: %+v", created)
	}
	location := resp.Header.Get("Location")
	if location != fmt.Sprintf("/api/v1/products/%d", created.ID) {
		t.Fatalf("unexpected location header %q", location)
	}

	resp, env = doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", map[string]any{
		"name":           "Touring Pedal",
		"product_number": "PD-T853",
		"standard_cost":  1,
		"list_price":     2,
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected duplicate name conflict, got %d", resp.StatusCode)
	}

	productURL := srv.baseURL + location
	replacement := map[string]any{
		"id":             created.ID,
		"name":           "Touring Pedal",
		"product_number": "PD-T852",
		"color":          "Black",
		"standard_cost":  35.96,
		"list_price":     84.99,
		"row_version":    1,
	}
	resp, _ = doJSON(t, srv.client, http.MethodPut, productURL, replacement, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("replace failed: status=%d", resp.StatusCode)
	}

	resp, env = doJSON(t, srv.client, http.MethodPut, productURL, replacement, nil)
	if resp.StatusCode != http.StatusConflict || env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("expected stale row version conflict, got status=%d", resp.StatusCode)
	}

	replacement["id"] = created.ID + 1
	resp, _ = doJSON(t, srv.client, http.MethodPut, productURL, replacement, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected id mismatch to be rejected, got %d", resp.StatusCode)
	}

	resp, env = doJSON(t, srv.client, http.MethodGet, productURL, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get after replace failed: %d", resp.StatusCode)
	}
	var updated domain.Product
	decodeData(t, env, &updated)
	if updated.Color != "Black" || updated.ListPrice != 84.99 || updated.RowVersion != 2 {
		t.Fatalf("replace not applied: %+v", updated)
	}

	resp, _ = doJSON(t, srv.client, http.MethodDelete, productURL, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete failed: %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv.client, http.MethodDelete, productURL, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected second delete to be NOT_FOUND, got %d", resp.StatusCode)
	}
}

func TestCatalogRejectsInvalidProducts(t *testing.T) {
	srv := newCatalogTestServer(t, catalogTestServerOptions{})

	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "missing name", body: map[string]any{"product_number": "X-1", "standard_cost": 1, "list_price": 1}},
		{name: "negative price", body: map[string]any{"name": "Broken", "product_number": "X-2", "standard_cost": 1, "list_price": -1}},
		{name: "bad thumbnail", body: map[string]any{"name": "Broken", "product_number": "X-3", "standard_cost": 1, "list_price": 1, "thumbnail_photo_file_name": "not-base64!"}},
		{name: "unknown category", body: map[string]any{"name": "Orphan", "product_number": "X-4", "standard_cost": 1, "list_price": 1, "product_category_id": 99999}},
		{name: "unknown model", body: map[string]any{"name": "Orphan", "product_number": "X-5", "standard_cost": 1, "list_price": 1, "product_model_id": 99999}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", tc.body, nil)
			if resp.StatusCode != http.StatusBadRequest || env.Error == nil || env.Error.Code != "BAD_REQUEST" {
				t.Fatalf("expected BAD_REQUEST, got status=%d error=%#v", resp.StatusCode, env.Error)
			}
		})
	}

	resp, _ := doRawText(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", nil, map[string]string{"Content-Type": "application/json"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected empty body to be rejected, got %d", resp.StatusCode)
	}
}

func TestCatalogMutationsRequirePermissionWhenAuthEnabled(t *testing.T) {
	srv := newCatalogTestServer(t, catalogTestServerOptions{authEnabled: true})
	body := map[string]any{"name": "Guarded", "product_number": "GD-1", "standard_cost": 1, "list_price": 2}

	resp, _ := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", body, bearer(srv.token(t, "products:read")))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without write permission, got %d", resp.StatusCode)
	}

	resp, env := doJSON(t, srv.client, http.MethodPost, srv.baseURL+"/api/v1/products", body, bearer(srv.token(t, service.PermissionProductsWrite)))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with write permission, got %d", resp.StatusCode)
	}
	var created domain.Product
	decodeData(t, env, &created)

	productURL := fmt.Sprintf("%s/api/v1/products/%d", srv.baseURL, created.ID)
	resp, _ = doJSON(t, srv.client, http.MethodDelete, productURL, nil, bearer(srv.token(t, service.PermissionProductsWrite)))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected delete to need its own permission, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv.client, http.MethodDelete, productURL, nil, bearer(srv.token(t, "products:*")))
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected wildcard permission to delete, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, srv.client, http.MethodGet, srv.baseURL+"/api/v1/products", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected reads to stay public, got %d", resp.StatusCode)
	}
}

func TestCatalogHealthProbes(t *testing.T) {
	srv := newCatalogTestServer(t, catalogTestServerOptions{skipSeed: true})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, env := doJSON(t, srv.client, http.MethodGet, srv.baseURL+path, nil, nil)
		if resp.StatusCode != http.StatusOK || !env.Success {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}
