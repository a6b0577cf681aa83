package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"agile-live/internal/data"
)

func main() {
	var (
		baseURL    = flag.String("base-url", "", "Pricing API base URL (default: "+data.DefaultBaseURL+")")
		outputPath = flag.String("output", "", "Output file path (default: ./data/products.json)")
		timeout    = flag.Duration("timeout", 30*time.Second, "Request timeout")
		maxPages   = flag.Int("max-pages", data.DefaultMaxPages, "Maximum listing pages to follow")
	)
	flag.Parse()

	if *outputPath == "" {
		*outputPath = data.GetDefaultProductsPath()
	}

	client := data.NewOctopusClient(*baseURL, *timeout)
	client.MaxPages = *maxPages

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Fetching products from %s\n", client.BaseURL)
	all, err := client.FetchProducts(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch products: %v", err)
	}
	fmt.Printf("Found %d products\n", len(all))

	// Keep the previous catalogue's entries that the listing no longer returns,
	// so retired Agile versions stay resolvable.
	merged := all
	if prev, err := data.LoadProducts(*outputPath); err == nil {
		seen := make(map[string]bool, len(all))
		for _, p := range all {
			seen[p.Code] = true
		}
		kept := 0
		for _, p := range prev.Products {
			if !seen[p.Code] {
				merged = append(merged, p)
				kept++
			}
		}
		if kept > 0 {
			fmt.Printf("Kept %d products from existing file\n", kept)
		}
	}

	now := time.Now()
	list := data.NewProductList(merged, now)
	for _, p := range list.Products {
		status := "available"
		if !p.AvailableAt(now) {
			status = "retired"
		}
		fmt.Printf("  %-20s %-10s %s\n", p.Code, status, p.DisplayName)
	}

	if err := data.SaveProducts(list, *outputPath); err != nil {
		log.Fatalf("Failed to save products: %v", err)
	}

	fmt.Printf("Saved %d Agile products to %s\n", len(list.Products), *outputPath)
}
