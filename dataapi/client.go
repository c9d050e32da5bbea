package dataapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relife/service-api/internal/upstream"
	postgrest "github.com/supabase-community/postgrest-go"
	storage "github.com/supabase-community/storage-go"
)

const (
	restPath    = "/rest/v1"
	storagePath = "/storage/v1"
	schema      = "public"

	listLimit          = 100
	defaultContentType = "application/octet-stream"
)

// APIError is returned when the data API answers with an error status.
// Storage errors carry StatusCode 0 when the response body does not state it.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("data API %s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Filter is a PostgREST horizontal filter, rendered as column=op.value
type Filter struct {
	Column   string
	Operator string
	Value    string
}

// Eq returns an equality filter
func Eq(column, value string) Filter {
	return Filter{Column: column, Operator: "eq", Value: value}
}

// ObjectMetadata is the storage metadata of an object
type ObjectMetadata struct {
	Size     int64
	Mimetype string
}

// StorageObject is an entry of a storage listing
type StorageObject struct {
	ID        string
	Name      string
	CreatedAt string
	UpdatedAt string
	Metadata  ObjectMetadata
}

func newStorageObject(f storage.FileObject) StorageObject {
	obj := StorageObject{
		ID:        f.Id,
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if meta, ok := f.Metadata.(map[string]interface{}); ok {
		if size, ok := meta["size"].(float64); ok {
			obj.Metadata.Size = int64(size)
		}
		if mimetype, ok := meta["mimetype"].(string); ok {
			obj.Metadata.Mimetype = mimetype
		}
	}
	return obj
}

// Client talks to the PostgREST and Storage APIs of the identity backend.
// Every request carries the apikey header and the client's bearer value.
// A fresh postgrest or storage client is built per call so that headers
// never leak between handles.
type Client struct {
	baseURL   string
	apiKey    string
	bearer    string
	timeout   time.Duration
	transport http.RoundTripper
}

func newClient(baseURL, apiKey, bearer string, timeout time.Duration, transport http.RoundTripper) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		bearer:    bearer,
		timeout:   timeout,
		transport: transport,
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// rest returns a PostgREST client whose requests are bound to ctx
func (c *Client) rest(ctx context.Context) (*postgrest.Client, *upstream.Transport) {
	client := postgrest.NewClient(c.baseURL+restPath, schema, map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + c.bearer,
	})

	transport := upstream.NewTransport(ctx, c.transport)
	if client.Transport != nil {
		client.Transport.Parent = transport
	}
	return client, transport
}

// storage returns a Storage client sending the bearer as its token
func (c *Client) storageClient() (*storage.Client, error) {
	if _, err := url.Parse(c.baseURL + storagePath); err != nil {
		return nil, fmt.Errorf("invalid storage URL: %w", err)
	}
	return storage.NewClient(c.baseURL+storagePath, c.bearer, map[string]string{
		"apikey": c.apiKey,
	}), nil
}

// Select reads all columns of table rows matching filters into out
func (c *Client) Select(ctx context.Context, table string, filters []Filter, out interface{}) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, transport := c.rest(ctx)
	query := client.From(table).Select("*", "", false)
	for _, f := range filters {
		query = query.Filter(f.Column, f.Operator, f.Value)
	}

	if _, err := query.ExecuteTo(out); err != nil {
		return restError("select", transport, err)
	}
	return nil
}

// Insert writes row into table and decodes the inserted representation into out
func (c *Client) Insert(ctx context.Context, table string, row interface{}, out interface{}) error {
	// Encoded up front: postgrest-go returns an unusable builder when it fails to marshal.
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	client, transport := c.rest(ctx)
	query := client.From(table).Insert(json.RawMessage(payload), false, "", "representation", "")

	if out == nil {
		_, _, err = query.Execute()
	} else {
		_, err = query.ExecuteTo(out)
	}
	if err != nil {
		return restError("insert", transport, err)
	}
	return nil
}

func restError(op string, transport *upstream.Transport, err error) error {
	if transport.Failed() {
		return &APIError{Op: op, StatusCode: transport.Status(), Body: err.Error()}
	}
	return fmt.Errorf("data API %s failed: %w", op, err)
}

// Upload stores body at objectPath inside bucket
func (c *Client) Upload(ctx context.Context, bucket, objectPath, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = defaultContentType
	}

	return c.await(ctx, "upload", func(client *storage.Client) error {
		_, err := client.UploadFile(url.PathEscape(bucket), escapeObjectPath(objectPath), body, storage.FileOptions{
			ContentType: &contentType,
		})
		return err
	})
}

// List returns the objects stored under prefix inside bucket
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]StorageObject, error) {
	var files []storage.FileObject
	err := c.await(ctx, "list", func(client *storage.Client) error {
		var err error
		files, err = client.ListFiles(url.PathEscape(bucket), prefix, storage.FileSearchOptions{
			Limit:         listLimit,
			SortByOptions: storage.SortBy{Column: "name", Order: "asc"},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	objects := make([]StorageObject, 0, len(files))
	for _, f := range files {
		objects = append(objects, newStorageObject(f))
	}
	return objects, nil
}

// PublicURL returns the public download URL of an object
func (c *Client) PublicURL(bucket, objectPath string) string {
	client, err := c.storageClient()
	if err != nil {
		return ""
	}
	return client.GetPublicUrl(url.PathEscape(bucket), escapeObjectPath(objectPath)).SignedURL
}

// await runs a storage call, which takes no context, and stops waiting once
// ctx is done or the client timeout passes. An abandoned call runs on until
// the upstream answers.
func (c *Client) await(ctx context.Context, op string, call func(*storage.Client) error) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("data API %s abandoned: %w", op, err)
	}

	client, err := c.storageClient()
	if err != nil {
		return fmt.Errorf("data API %s failed: %w", op, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- call(client)
	}()

	select {
	case err := <-done:
		return storageError(op, err)
	case <-ctx.Done():
		return fmt.Errorf("data API %s abandoned: %w", op, ctx.Err())
	}
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}

	var se *storage.StorageError
	if errors.As(err, &se) {
		return &APIError{Op: op, StatusCode: se.Status, Body: se.Message}
	}
	return fmt.Errorf("data API %s failed: %w", op, err)
}

func escapeObjectPath(objectPath string) string {
	segments := strings.Split(strings.TrimPrefix(objectPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
