package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"agile-live/internal/model"
)

var testTariff = model.Tariff{ProductCode: "AGILE-24-10-01", Region: "a"}

func ratesPage(next string, values ...float64) string {
	start := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)
	body := `{"count": 3, "next": `
	if next == "" {
		body += "null"
	} else {
		body += fmt.Sprintf("%q", next)
	}
	body += `, "previous": null, "results": [`
	for i, v := range values {
		if i > 0 {
			body += ","
		}
		from := start.Add(time.Duration(i) * 30 * time.Minute)
		body += fmt.Sprintf(`{"value_exc_vat": %g, "value_inc_vat": %g, "valid_from": %q, "valid_to": %q, "payment_method": null}`,
			v/1.05, v, from.Format(time.RFC3339), from.Add(30*time.Minute).Format(time.RFC3339))
	}
	return body + "]}"
}

func TestQueryUnitRatesFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	var hits int32
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		want := "/v1/products/AGILE-24-10-01/electricity-tariffs/E-1R-AGILE-24-10-01-A/standard-unit-rates/"
		if r.URL.Path != want {
			t.Errorf("path = %s, want %s", r.URL.Path, want)
		}
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, ratesPage("", 3))
			return
		}
		if r.URL.Query().Get("page_size") != "100" {
			t.Errorf("page_size = %q", r.URL.Query().Get("page_size"))
		}
		fmt.Fprint(w, ratesPage(srv.URL+r.URL.Path+"?page=2", 1, 2))
	}))
	defer srv.Close()

	c := NewOctopusClient(srv.URL, time.Second)
	resp, err := c.QueryUnitRates(context.Background(), QueryUnitRatesParams{Tariff: testTariff})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 || resp.Count != 3 || resp.Next != nil {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Results[2].ValueIncVAT != 3 {
		t.Fatalf("last = %+v", resp.Results[2])
	}
	if hits != 2 {
		t.Fatalf("hits = %d", hits)
	}
}

func TestQueryUnitRatesPageLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Every page points at another one.
		fmt.Fprint(w, ratesPage(srv.URL+r.URL.Path+"?page=n", 1))
	}))
	defer srv.Close()

	c := NewOctopusClient(srv.URL, time.Second)
	c.MaxPages = 3
	records, err := c.FetchUnitRates(context.Background(), testTariff)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
}

func TestQueryUnitRatesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
	}{
		{"rate limit", http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"not found", http.StatusNotFound, "NOT_FOUND"},
		{"server", http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"client", http.StatusBadRequest, "API_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewOctopusClient(srv.URL, time.Second).FetchUnitRates(context.Background(), testTariff)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Code != tt.code || apiErr.StatusCode != tt.status {
				t.Fatalf("got %+v", apiErr)
			}
			if tt.status == http.StatusTooManyRequests && apiErr.RetryAfter != "60" {
				t.Fatalf("retry after = %q", apiErr.RetryAfter)
			}
		})
	}
}

func TestQueryUnitRatesRejectsBadTariff(t *testing.T) {
	c := NewOctopusClient("http://127.0.0.1:0", time.Second)
	if _, err := c.FetchUnitRates(context.Background(), model.Tariff{ProductCode: "X", Region: "I"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestQueryUnitRatesUsesCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, ratesPage("", 5, 6))
	}))
	defer srv.Close()

	c := NewOctopusClient(srv.URL, time.Second)
	cache := NewMemoryCache(time.Hour, 0)
	c.Cache = cache

	for i := 0; i < 3; i++ {
		records, err := c.FetchUnitRates(context.Background(), testTariff)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 2 {
			t.Fatalf("records = %d", len(records))
		}
	}
	if hits != 1 {
		t.Fatalf("upstream hits = %d, want 1", hits)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache entries = %d", cache.Len())
	}
}

func TestQueryUnitRatesHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewOctopusClient(srv.URL, time.Second).FetchUnitRates(ctx, testTariff); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFetchProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/products/" || r.URL.Query().Get("brand") != "OCTOPUS_ENERGY" {
			t.Errorf("unexpected request %s", r.URL)
		}
		fmt.Fprint(w, `{"count":2,"next":null,"previous":null,"results":[
			{"code":"AGILE-24-10-01","direction":"IMPORT","display_name":"Agile Octopus"},
			{"code":"VAR-22-11-01","direction":"IMPORT","display_name":"Flexible Octopus"}]}`)
	}))
	defer srv.Close()

	products, err := NewOctopusClient(srv.URL, time.Second).FetchProducts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 || products[0].DisplayName != "Agile Octopus" {
		t.Fatalf("products = %+v", products)
	}
}

type failingSource struct{}

func (failingSource) FetchUnitRates(context.Context, model.Tariff) ([]model.PriceRecord, error) {
	return nil, &APIError{StatusCode: 503, Code: "UPSTREAM_UNAVAILABLE", Message: "down"}
}

func TestFetchOrEmpty(t *testing.T) {
	if got := FetchOrEmpty(context.Background(), failingSource{}, testTariff); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
