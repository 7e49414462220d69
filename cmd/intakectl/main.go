// intakectl is the operator's view of the claims backend: list and filter
// claims, inspect a claim's documents, and upload a document from disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesikahq/claims-intake/internal/backend"
	"github.com/mesikahq/claims-intake/internal/claim"
	"github.com/mesikahq/claims-intake/internal/filter"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Error loading .env file: %v", err)
	}

	viper.SetConfigName("intakectl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("$HOME/.claims-intake")
	viper.SetDefault("upstream.base_url", "http://localhost:8000")
	viper.SetDefault("upstream.timeout_seconds", 15)
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("No intakectl config file found, using defaults: %v", err)
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		viper.Set("upstream.base_url", v)
	}

	client := backend.NewClient(
		viper.GetString("upstream.base_url"),
		time.Duration(viper.GetInt("upstream.timeout_seconds"))*time.Second,
		0,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "claims":
		listClaims(ctx, client, os.Args[2:])
	case "documents":
		listDocuments(ctx, client, os.Args[2:])
	case "upload":
		uploadDocument(ctx, client, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: intakectl <claims|documents|upload> [flags]")
}

func listClaims(ctx context.Context, client *backend.Client, args []string) {
	fs := flag.NewFlagSet("claims", flag.ExitOnError)
	skip := fs.Int("skip", 0, "Records to skip")
	limit := fs.Int("limit", 100, "Maximum records to fetch")
	status := fs.String("status", "", "Filter by claim status (exact)")
	claimType := fs.String("type", "", "Filter by claim type (exact)")
	date := fs.String("date", "", "Filter by claim date (YYYY-MM-DD)")
	notes := fs.String("notes", "", "Filter by coverage notes (substring)")
	patient := fs.String("patient", "", "Filter by patient id (exact)")
	provider := fs.String("provider", "", "Filter by provider id (exact)")
	fs.Parse(args)

	claims, err := client.ListClaims(ctx, *skip, *limit)
	if err != nil {
		log.Printf("Failed to fetch claims: %v", err)
		claims = nil
	}

	criteria := filter.Criteria{
		PatientID:  *patient,
		ProviderID: *provider,
		Status:     *status,
		ClaimType:  *claimType,
		ClaimDate:  *date,
		Notes:      *notes,
	}
	matched := filter.Apply(claims, criteria)
	if len(matched) == 0 {
		fmt.Println("No claims match the filter criteria.")
		return
	}

	for _, rec := range matched {
		fmt.Printf("%s\t%s\t%s\t%.2f\t%s\n",
			rec.ClaimID, rec.ClaimStatus, claim.NormalizeDate(rec.ClaimDate), rec.ClaimAmount, rec.ClaimType)
	}
	fmt.Printf("%d of %d claims matched\n", len(matched), len(claims))
}

func listDocuments(ctx context.Context, client *backend.Client, args []string) {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	claimID := fs.String("claim", "", "Claim id")
	fs.Parse(args)

	if *claimID == "" {
		log.Fatal("A claim id is required. Use -claim")
	}

	docs, err := client.ListDocuments(ctx, *claimID)
	if err != nil || len(docs) == 0 {
		fmt.Println("No documents found for this claim.")
		return
	}
	for _, doc := range docs {
		desc := doc.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", doc.DocumentID, doc.DocumentType, doc.FileName, desc)
	}
}

func uploadDocument(ctx context.Context, client *backend.Client, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	claimID := fs.String("claim", "", "Claim id")
	docType := fs.String("doc-type", "", "Document type")
	path := fs.String("file", "", "Path of the file to upload")
	description := fs.String("description", "", "Optional description")
	fs.Parse(args)

	if *claimID == "" || *docType == "" || *path == "" {
		log.Fatal("Claim id, document type, and file are required. Use -claim, -doc-type, and -file flags")
	}
	documentType := claim.DocumentType(*docType)
	if !documentType.Valid() {
		log.Fatalf("Unknown document type: %s", *docType)
	}

	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer file.Close()

	doc, err := client.UploadDocument(ctx, backend.UploadRequest{
		ClaimID:      *claimID,
		DocumentType: documentType,
		FileName:     filepath.Base(*path),
		Description:  *description,
		File:         file,
	})
	if err != nil {
		log.Fatalf("Upload failed: %v", err)
	}

	fmt.Printf("Uploaded document:\n")
	fmt.Printf("ID: %s\n", doc.DocumentID)
	fmt.Printf("Type: %s\n", doc.DocumentType)
	fmt.Printf("File: %s\n", doc.FileName)
}
