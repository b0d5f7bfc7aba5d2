package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/banking-insights/internal/logger"

	"github.com/dvloznov/banking-insights/internal/domain"
)

// Collection file names inside a snapshot directory or bucket prefix.
const (
	AccountsFile  = "accounts.json"
	CustomersFile = "customers.json"
	BillsFile     = "bills.json"
	TransfersFile = "transfers.json"
)

// Load reads a full snapshot from source, which is either a local directory
// or a gs://bucket/prefix. A missing collection file yields an empty
// collection, not an error: the pipeline tolerates partial snapshots.
func Load(ctx context.Context, source string) (*domain.Snapshot, error) {
	log := logger.FromContext(ctx)

	snap := &domain.Snapshot{}
	for _, c := range []struct {
		file   string
		decode func([]byte) error
	}{
		{AccountsFile, func(b []byte) error {
			var err error
			snap.Accounts, err = DecodeAccounts(b)
			return err
		}},
		{CustomersFile, func(b []byte) error {
			var err error
			snap.Customers, err = DecodeCustomers(b)
			return err
		}},
		{BillsFile, func(b []byte) error {
			var err error
			snap.Bills, err = DecodeBills(b)
			return err
		}},
		{TransfersFile, func(b []byte) error {
			var err error
			snap.Transfers, err = DecodeTransfers(b)
			return err
		}},
	} {
		data, err := readObject(ctx, source, c.file)
		if err != nil {
			if isMissing(err) {
				log.Warn().Str("file", c.file).Msg("Snapshot collection missing, treating as empty")
				continue
			}
			return nil, fmt.Errorf("snapshot.Load: %s: %w", c.file, err)
		}
		if err := c.decode(data); err != nil {
			return nil, fmt.Errorf("snapshot.Load: %s: %w", c.file, err)
		}
	}

	log.Info().
		Int("accounts", len(snap.Accounts)).
		Int("customers", len(snap.Customers)).
		Int("bills", len(snap.Bills)).
		Int("transfers", len(snap.Transfers)).
		Str("source", source).
		Msg("Loaded snapshot")

	return snap, nil
}

// isMissing reports whether err means the collection object does not exist,
// on disk or in the bucket. fetchFromGCS wraps storage.ErrObjectNotExist, so
// the check has to unwrap.
func isMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, storage.ErrObjectNotExist)
}

// readObject fetches one collection file from disk or GCS.
func readObject(ctx context.Context, source, name string) ([]byte, error) {
	if strings.HasPrefix(source, "gs://") {
		return fetchFromGCS(ctx, strings.TrimSuffix(source, "/")+"/"+name)
	}
	return os.ReadFile(filepath.Join(source, name))
}

// fetchFromGCS downloads the object bytes from the given GCS URI.
// It assumes Application Default Credentials are configured.
func fetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	bucketName := parts[0]
	objectPath := parts[1]

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading bytes: %w", err)
	}

	return data, nil
}

// UploadObject writes data under a gs://bucket/prefix destination, so pull
// runs can land snapshots straight in the bucket the pipeline reads from.
func UploadObject(ctx context.Context, gcsPrefix, name string, data []byte) error {
	trimmed := strings.TrimPrefix(gcsPrefix, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return fmt.Errorf("invalid GCS prefix: %s", gcsPrefix)
	}

	bucketName := parts[0]
	objectPath := name
	if len(parts) == 2 && parts[1] != "" {
		objectPath = path.Join(parts[1], name)
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("UploadObject: creating storage client: %w", err)
	}
	defer client.Close()

	w := client.Bucket(bucketName).Object(objectPath).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadObject: writing %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadObject: finalize %s: %w", objectPath, err)
	}
	return nil
}
