// Command attachcli exercises the staging and upload flow against a
// running upload server: stage local files for a target, push the
// batch with progress output, then read back metadata and a signed
// URL for each stored attachment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/opsdesk/attachkit/internal/apiclient"
	"github.com/opsdesk/attachkit/internal/attachment"
	"github.com/opsdesk/attachkit/internal/observability"
	"github.com/opsdesk/attachkit/internal/staging"
	"github.com/opsdesk/attachkit/internal/transport"
	"github.com/opsdesk/attachkit/internal/uploader"
)

func main() {
	var (
		baseURL  = flag.String("server", "http://localhost:8080", "upload server base URL")
		targetID = flag.String("target", "demo-target", "target entity id to attach files to")
		apiKey   = flag.String("api-key", "", "API key, if the server requires one")
		global   = flag.Bool("global", false, "mark staged files as global")
		remove   = flag.String("delete", "", "delete this attachment id and exit")
	)
	flag.Parse()

	logger, err := observability.InitLogger(true)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	var clientOpts []apiclient.Option
	if *apiKey != "" {
		clientOpts = append(clientOpts, apiclient.WithAPIKey(*apiKey))
	}
	client := apiclient.New(*baseURL, clientOpts...)

	if *remove != "" {
		if err := client.Delete(ctx, *remove); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		fmt.Printf("✓ Deleted attachment %s\n", *remove)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: attachcli [flags] file [file ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	store := staging.NewStore()
	view := staging.NewView(store, *targetID)

	fmt.Println("=== Staging Files ===")
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("failed to stat %s: %v", path, err)
		}
		id := view.Enqueue(staging.EnqueueInput{
			Filename:  info.Name(),
			SizeBytes: info.Size(),
			IsGlobal:  *global,
			Open:      attachment.FileOpener(path),
		})
		fmt.Printf("✓ Staged: %s (id: %s, %d bytes)\n", info.Name(), id, info.Size())
	}

	metrics, err := observability.InitMetrics(nil)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	driver := uploader.New(uploader.Config{
		Store:     store,
		Transport: transport.NewResumableClient(transport.WithLogger(logger)),
		Logger:    logger,
		Metrics:   metrics,
	})

	fmt.Println("\n=== Uploading Batch ===")
	uploadKey := *baseURL + "/uploads/" + *targetID
	done := make(chan struct{})
	go trackProgress(store, driver, view.Scope(), done)

	results, err := driver.UploadAll(ctx, view.Scope(), uploadKey)
	close(done)
	fmt.Println()
	if err != nil {
		log.Printf("batch stopped early: %v", err)
	}

	for _, res := range results {
		switch res.Status {
		case attachment.StatusUploaded:
			fmt.Printf("✓ Uploaded: %s (token: %s)\n", res.Filename, res.Token)
			rec, err := client.Metadata(ctx, res.Token)
			if err != nil {
				log.Printf("  metadata fetch failed: %v", err)
				continue
			}
			fmt.Printf("  stored as %s, %d bytes, %s\n", rec.OriginalName, rec.SizeBytes, rec.FileType)
		case attachment.StatusFailed:
			fmt.Printf("✗ Failed: %s (%v)\n", res.Filename, res.Err)
		default:
			fmt.Printf("- Skipped: %s\n", res.Filename)
		}
	}

	fmt.Println("\n=== Stored Attachments ===")
	records, err := client.List(ctx, *targetID)
	if err != nil {
		log.Fatalf("list failed: %v", err)
	}
	for i, rec := range records {
		fmt.Printf("  %d. %s (id: %s, %d bytes, %s)\n",
			i+1, rec.OriginalName, rec.ID, rec.SizeBytes, rec.FileType)
		url, err := client.SignedURL(ctx, rec.ID)
		if err != nil {
			log.Printf("     signed url failed: %v", err)
			continue
		}
		fmt.Printf("     url: %s\n", url)
	}
}

// trackProgress polls the driver while the batch runs and redraws a
// single progress line for whichever item is currently transferring.
func trackProgress(store *staging.Store, driver *uploader.Driver, scope staging.Scope, done <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, it := range store.Queue(scope) {
				if it.Status == attachment.StatusUploading {
					fmt.Printf("\rUploading %s: %.2f%%", it.Filename, driver.Progress(it.ID))
				}
			}
		}
	}
}
