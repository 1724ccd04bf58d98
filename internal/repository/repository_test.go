package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "harrier-test.db"),
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetSnapshot", func(t *testing.T) {
		snap := &domain.WalletSnapshot{
			Address: "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8",
			NativeTxs: []domain.Transaction{
				{
					Hash:      "0xaaa",
					From:      "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8",
					To:        "0x1111111111111111111111111111111111111111",
					Value:     "1000000000000000000",
					TimeStamp: "1609459200",
				},
			},
			TokenTxs: []domain.Transaction{
				{
					Hash:        "0xbbb",
					From:        "0x2222222222222222222222222222222222222222",
					To:          "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8",
					Value:       "5000000",
					TimeStamp:   "1609459260",
					TokenSymbol: "USDT",
					TokenName:   "Tether USD",
				},
			},
			BalanceWei: "2500000000000000000",
			FetchedAt:  time.Now().UTC().Truncate(time.Second),
		}

		if err := repo.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}

		got, err := repo.GetSnapshot(ctx, snap.Address)
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if got == nil {
			t.Fatal("GetSnapshot returned nil for stored snapshot")
		}
		if got.Address != snap.Address {
			t.Errorf("address mismatch: got %s, want %s", got.Address, snap.Address)
		}
		if got.BalanceWei != snap.BalanceWei {
			t.Errorf("balance mismatch: got %s, want %s", got.BalanceWei, snap.BalanceWei)
		}
		if len(got.NativeTxs) != 1 || got.NativeTxs[0].Hash != "0xaaa" {
			t.Errorf("native txs not round-tripped: %+v", got.NativeTxs)
		}
		if len(got.TokenTxs) != 1 || got.TokenTxs[0].TokenSymbol != "USDT" {
			t.Errorf("token txs not round-tripped: %+v", got.TokenTxs)
		}
	})

	t.Run("GetSnapshotCaseInsensitive", func(t *testing.T) {
		got, err := repo.GetSnapshot(ctx, "0x00009277775AC7D0D59EAAD8FEE3D10AC6C805E8")
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected snapshot for uppercased address")
		}
	})

	t.Run("SaveSnapshotUpsert", func(t *testing.T) {
		snap := &domain.WalletSnapshot{
			Address:    "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8",
			NativeTxs:  []domain.Transaction{},
			TokenTxs:   []domain.Transaction{},
			BalanceWei: "0",
			FetchedAt:  time.Now().UTC(),
		}

		if err := repo.SaveSnapshot(ctx, snap); err != nil {
			t.Fatalf("SaveSnapshot upsert failed: %v", err)
		}

		got, err := repo.GetSnapshot(ctx, snap.Address)
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if got.BalanceWei != "0" {
			t.Errorf("upsert did not replace balance: got %s", got.BalanceWei)
		}
		if len(got.NativeTxs) != 0 {
			t.Errorf("upsert did not replace native txs: %d left", len(got.NativeTxs))
		}
	})

	t.Run("GetSnapshotMiss", func(t *testing.T) {
		got, err := repo.GetSnapshot(ctx, "0x9999999999999999999999999999999999999999")
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for unknown address, got %+v", got)
		}
	})

	t.Run("DeleteSnapshot", func(t *testing.T) {
		if err := repo.DeleteSnapshot(ctx, "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8"); err != nil {
			t.Fatalf("DeleteSnapshot failed: %v", err)
		}

		got, err := repo.GetSnapshot(ctx, "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8")
		if err != nil {
			t.Fatalf("GetSnapshot failed: %v", err)
		}
		if got != nil {
			t.Error("snapshot still present after delete")
		}

		if err := repo.DeleteSnapshot(ctx, "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("SaveSnapshotInvalid", func(t *testing.T) {
		if err := repo.SaveSnapshot(ctx, &domain.WalletSnapshot{}); err == nil {
			t.Error("expected error for empty address")
		}
	})

	t.Run("PruneSnapshots", func(t *testing.T) {
		stale := &domain.WalletSnapshot{
			Address:    "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			BalanceWei: "1",
			FetchedAt:  time.Now().UTC().Add(-48 * time.Hour),
		}
		fresh := &domain.WalletSnapshot{
			Address:    "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			BalanceWei: "2",
			FetchedAt:  time.Now().UTC(),
		}
		if err := repo.SaveSnapshot(ctx, stale); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
		if err := repo.SaveSnapshot(ctx, fresh); err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}

		sqlRepo := repo.(*SQLRepository)
		removed, err := sqlRepo.PruneSnapshots(ctx, time.Now().UTC().Add(-24*time.Hour))
		if err != nil {
			t.Fatalf("PruneSnapshots failed: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 pruned row, got %d", removed)
		}

		got, err := repo.GetSnapshot(ctx, fresh.Address)
		if err != nil || got == nil {
			t.Errorf("fresh snapshot should survive pruning: %v, %+v", err, got)
		}
	})
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
