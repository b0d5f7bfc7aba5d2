package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/storage"
)

func TestLoadToleratesMissingCollections(t *testing.T) {
	dir := t.TempDir()

	accounts := `{"results": [{"_id": "a1", "customer_id": "c1", "balance": 100}]}`
	if err := os.WriteFile(filepath.Join(dir, AccountsFile), []byte(accounts), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	snap, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load returned error for partial snapshot: %v", err)
	}

	if len(snap.Accounts) != 1 {
		t.Errorf("got %d accounts, want 1", len(snap.Accounts))
	}
	if len(snap.Customers) != 0 || len(snap.Bills) != 0 || len(snap.Transfers) != 0 {
		t.Errorf("missing collections not empty: customers=%d bills=%d transfers=%d",
			len(snap.Customers), len(snap.Bills), len(snap.Transfers))
	}
}

func TestLoadFailsOnMalformedCollection(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, BillsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := Load(context.Background(), dir); err == nil {
		t.Fatal("expected error for malformed collection file")
	}
}

func TestIsMissingClassification(t *testing.T) {
	_, readErr := os.ReadFile(filepath.Join(t.TempDir(), "absent.json"))
	if readErr == nil {
		t.Fatal("expected read error for absent file")
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"local read of absent file", readErr, true},
		{"bare object-not-exist", storage.ErrObjectNotExist, true},
		{
			"wrapped object-not-exist",
			fmt.Errorf("fetchFromGCS: reading object b/o: %w", storage.ErrObjectNotExist),
			true,
		},
		{"unrelated error", fmt.Errorf("permission denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMissing(tt.err); got != tt.want {
				t.Errorf("isMissing(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
