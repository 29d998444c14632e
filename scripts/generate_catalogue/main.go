// Command generate_catalogue writes a gzipped seed catalogue of synthetic
// products for load testing, suitable for `greenzone seed`.
package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"greenzone/internal/model"
	"greenzone/internal/seed"

	"gopkg.in/yaml.v3"
)

var (
	crops     = []string{"Gạo ST25", "Xoài Cát Hòa Lộc", "Thanh Long Ruột Đỏ", "Cà Phê Robusta", "Hồ Tiêu"}
	provinces = []string{"Sóc Trăng", "Tiền Giang", "Bình Thuận", "Đắk Lắk", "Gia Lai"}
	journey   = []string{"HARVEST", "PROCESSING", "PACKAGING", "TRANSPORT", "DISTRIBUTION"}
)

func main() {
	out := flag.String("out", "data/catalogue.yaml.gz", "output file")
	products := flag.Int("products", 100, "number of products")
	steps := flag.Int("steps", 3, "supply-chain steps per product (at most 5)")
	registrant := flag.String("registrant", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "registering account")
	flag.Parse()

	if *steps > len(journey) {
		log.Fatalf("at most %d steps per product are supported", len(journey))
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	catalogue := generate(*products, *steps, model.Identity(*registrant))

	if err := writeCatalogue(*out, catalogue); err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}

	fmt.Printf("Created %s with %d products and %d steps\n", *out, len(catalogue.Products), len(catalogue.Steps))
}

func generate(n, stepsPer int, registrant model.Identity) *seed.Catalogue {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &seed.Catalogue{}

	for i := range n {
		id := fmt.Sprintf("GEN-%05d", i+1)
		crop := crops[i%len(crops)]
		province := provinces[i%len(provinces)]
		harvest := base.AddDate(0, 0, i%365)

		c.Products = append(c.Products, seed.ProductEntry{
			ID:            id,
			Name:          crop,
			Description:   fmt.Sprintf("%s from %s", crop, province),
			Location:      province,
			HarvestDate:   harvest,
			Farmer:        fmt.Sprintf("Farmer %d", i%50+1),
			Certification: "VietGAP",
			Price:         int64(i%10+1) * 1_000_000_000_000_000,
			RegisteredBy:  registrant,
		})

		for j := range stepsPer {
			c.Steps = append(c.Steps, model.StepInput{
				ProductID: id,
				Action:    journey[j],
				Location:  province,
				Timestamp: harvest.Add(time.Duration(j) * 24 * time.Hour),
				Actor:     registrant,
				EventID:   fmt.Sprintf("%s-%d", id, j),
			})
		}
	}

	return c
}

func writeCatalogue(filePath string, c *seed.Catalogue) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	enc := yaml.NewEncoder(gzipWriter)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write catalogue: %w", err)
	}
	return enc.Close()
}
