// Package main provides a CLI tool to ingest a directory of invoice images
// through the API. Each image is posted to the ingest endpoint with proper
// authentication, in batches of -batch files per request.
//
// Usage:
//
//	go run scripts/ingest-invoices/main.go -dir /path/to/invoices -api-url http://localhost:8080 -api-key YOUR_API_KEY
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the CLI configuration
type Config struct {
	DirPath    string
	APIBaseURL string
	APIKey     string
	Title      string
	BatchSize  int
	DelayMS    int
	DryRun     bool
}

// IngestResponse mirrors the ingest endpoint's response body
type IngestResponse struct {
	Items []struct {
		Source     string `json:"source"`
		Status     string `json:"status"`
		DocumentID string `json:"documentId"`
		Error      string `json:"error"`
	} `json:"items"`
	IngestedCount int `json:"ingestedCount"`
}

// Stats tracks ingestion statistics
type Stats struct {
	TotalFiles      int
	SkippedNonImage int
	Ingested        int
	Failed          int
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

func main() {
	cfg := parseFlags()

	if cfg.DirPath == "" {
		fmt.Println("Error: -dir is required")
		flag.Usage()
		os.Exit(1)
	}

	if cfg.APIKey == "" {
		fmt.Println("Error: -api-key is required")
		flag.Usage()
		os.Exit(1)
	}

	fmt.Printf("🚀 Invoice Ingestion Tool\n")
	fmt.Printf("   API URL: %s\n", cfg.APIBaseURL)
	fmt.Printf("   Directory: %s\n", cfg.DirPath)
	fmt.Printf("   Batch size: %d files per request\n", cfg.BatchSize)
	fmt.Printf("   Delay: %dms between requests\n", cfg.DelayMS)
	if cfg.DryRun {
		fmt.Printf("   ⚠️  DRY RUN MODE - No actual API calls will be made\n")
	}
	fmt.Println()

	stats := processDirectory(cfg)

	fmt.Println()
	fmt.Println("📊 Ingestion Summary")
	fmt.Println("   ─────────────────────")
	fmt.Printf("   Total files found:   %d\n", stats.TotalFiles)
	fmt.Printf("   Skipped (non-image): %d\n", stats.SkippedNonImage)
	fmt.Printf("   Ingested:            %d\n", stats.Ingested)
	fmt.Printf("   Failed:              %d\n", stats.Failed)
	fmt.Println()

	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.DirPath, "dir", "", "Directory containing invoice images (required)")
	flag.StringVar(&cfg.APIBaseURL, "api-url", "http://localhost:8080", "API base URL")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for authentication (required)")
	flag.StringVar(&cfg.Title, "title", "", "Document title applied to the batch (defaults to each filename)")
	flag.IntVar(&cfg.BatchSize, "batch", 5, "Number of files per ingest request")
	flag.IntVar(&cfg.DelayMS, "delay", 100, "Delay in milliseconds between API calls")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "List files but don't make API calls")

	flag.Parse()
	return cfg
}

func processDirectory(cfg Config) Stats {
	stats := Stats{}

	entries, err := os.ReadDir(cfg.DirPath)
	if err != nil {
		fmt.Printf("Error reading directory: %v\n", err)
		os.Exit(1)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stats.TotalFiles++
		if !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			stats.SkippedNonImage++
			continue
		}
		paths = append(paths, filepath.Join(cfg.DirPath, entry.Name()))
	}

	if len(paths) == 0 {
		fmt.Println("No image files found.")
		return stats
	}

	fmt.Println("📥 Ingesting invoice images...")
	fmt.Println()

	client := &http.Client{Timeout: 5 * time.Minute}

	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(paths); start += batchSize {
		end := start + batchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		if cfg.DryRun {
			for _, p := range batch {
				fmt.Printf("   ○ Would ingest: %s\n", filepath.Base(p))
			}
			stats.Ingested += len(batch)
			continue
		}

		resp, err := postBatch(client, cfg, batch)
		if err != nil {
			fmt.Printf("   ✗ Batch failed: %v\n", err)
			stats.Failed += len(batch)
		} else {
			for _, item := range resp.Items {
				if item.Status == "ingested" {
					fmt.Printf("   ✓ %s (document %s)\n", item.Source, item.DocumentID)
					stats.Ingested++
				} else {
					fmt.Printf("   ✗ %s: %s\n", item.Source, item.Error)
					stats.Failed++
				}
			}
		}

		if end < len(paths) && cfg.DelayMS > 0 {
			time.Sleep(time.Duration(cfg.DelayMS) * time.Millisecond)
		}
	}

	return stats
}

func postBatch(client *http.Client, cfg Config, paths []string) (*IngestResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if cfg.Title != "" {
		if err := writer.WriteField("title", cfg.Title); err != nil {
			return nil, fmt.Errorf("write title field: %w", err)
		}
	}

	for _, path := range paths {
		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}

		_, err = io.Copy(part, f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, cfg.APIBaseURL+"/v1/invoices/ingest", body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var resp IngestResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &resp, nil
}
