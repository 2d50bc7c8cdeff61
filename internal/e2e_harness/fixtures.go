package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal/store"
)

// Schemas used by the end-to-end flows: an author referenced by articles, and an
// article with a cover image.
var Schemas = map[string]string{
	"author": `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 2}
	}
}`,
	"article": `{
	"type": "object",
	"required": ["title", "author"],
	"properties": {
		"title": {"type": "string", "minLength": 3},
		"slug": {"type": "string", "view": {"type": "slug", "source": "title"}},
		"author": {"$ref": "author", "view": {"type": "single-select-ref", "previewPath": "/name"}},
		"cover": {
			"type": "object",
			"view": "image",
			"properties": {
				"name": {"type": "string"},
				"url": {"type": "string"}
			}
		}
	}
}`,
}

// WriteSchemaDir writes Schemas as <type>.json files into dir.
func WriteSchemaDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for typeName, schema := range Schemas {
		if err := os.WriteFile(filepath.Join(dir, typeName+".json"), []byte(schema), 0o644); err != nil {
			return fmt.Errorf("write schema %s: %w", typeName, err)
		}
	}
	return nil
}

// SeedDocuments creates the documents table and inserts docs of typeName at
// revision 1. Each doc needs an _id.
func SeedDocuments(ctx context.Context, db *sql.DB, table, typeName string, docs []formview.Document) error {
	if _, err := db.ExecContext(ctx, store.CreateTableSQL(table)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	insert := fmt.Sprintf(`INSERT INTO %q (type, id, rev, body) VALUES ($1, $2, $3, $4)`, table)
	for _, doc := range docs {
		id := doc.ID()
		if id == "" {
			return fmt.Errorf("seed document without %s", formview.FieldID)
		}
		rev := store.NextRev("")
		doc[formview.FieldRev] = rev
		doc[formview.FieldType] = typeName
		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, insert, typeName, id, rev, string(body)); err != nil {
			return fmt.Errorf("insert %s/%s: %w", typeName, id, err)
		}
	}
	return nil
}

// FetchObject downloads an object from the S3 endpoint with the harness credentials.
func FetchObject(ctx context.Context, endpoint, bucket, key string) ([]byte, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(S3AccessKey, S3SecretKey, "")),
		config.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
