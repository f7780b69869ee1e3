package discovery

import (
    "context"
    "log"
    "time"
)

// MigrationReport summarizes one backfill run
type MigrationReport struct {
    LikesScanned     int
    LikesMigrated    int
    DislikesScanned  int
    DislikesMigrated int
    Skipped          int
    Duration         time.Duration
}

// Migrator backfills the interaction ledger from the legacy likes and
// dislikes tables. Runs are idempotent: rows whose (actor, target, type,
// created_at) already exist in the ledger are skipped, so the migration can
// be resumed or repeated safely while the write-through shim is live.
type Migrator struct {
    ledger    LedgerRepository
    repo      Repository
    batchSize int
    now       func() time.Time
}

func NewMigrator(ledger LedgerRepository, repo Repository, batchSize int) *Migrator {
    if batchSize < 1 {
        batchSize = 500
    }
    return &Migrator{
        ledger:    ledger,
        repo:      repo,
        batchSize: batchSize,
        now:       time.Now,
    }
}

func (m *Migrator) Run(ctx context.Context) (*MigrationReport, error) {
    started := m.now()
    report := &MigrationReport{}

    if err := m.migrateLikes(ctx, report); err != nil {
        return report, err
    }
    if err := m.migrateDislikes(ctx, report); err != nil {
        return report, err
    }

    report.Duration = m.now().Sub(started)
    log.Printf("ledger backfill: %d/%d likes, %d/%d dislikes migrated, %d skipped in %s",
        report.LikesMigrated, report.LikesScanned,
        report.DislikesMigrated, report.DislikesScanned,
        report.Skipped, report.Duration)
    return report, nil
}

func (m *Migrator) migrateLikes(ctx context.Context, report *MigrationReport) error {
    var afterID int64
    for {
        batch, err := m.repo.ListLegacyLikes(ctx, afterID, m.batchSize)
        if err != nil {
            return err
        }
        if len(batch) == 0 {
            return nil
        }

        for _, like := range batch {
            report.LikesScanned++
            afterID = like.ID

            itype := InteractionLike
            if like.IsSuper {
                itype = InteractionSuperLike
            }

            exists, err := m.ledger.ExistsAt(ctx, like.SenderID, like.ReceiverID, itype, like.CreatedAt)
            if err != nil {
                return err
            }
            if exists {
                report.Skipped++
                continue
            }

            rec := &InteractionHistory{
                ActorID:   like.SenderID,
                TargetID:  like.ReceiverID,
                Type:      itype,
                CreatedAt: like.CreatedAt,
            }
            if err := m.ledger.InsertBackfill(ctx, rec); err != nil {
                // The write-through shim may have landed a newer active row
                // for the same triple; the legacy row is then redundant.
                if isUniqueViolation(err) {
                    report.Skipped++
                    continue
                }
                return err
            }
            report.LikesMigrated++
        }
    }
}

func (m *Migrator) migrateDislikes(ctx context.Context, report *MigrationReport) error {
    now := m.now()

    var afterID int64
    for {
        batch, err := m.repo.ListLegacyDislikes(ctx, afterID, m.batchSize)
        if err != nil {
            return err
        }
        if len(batch) == 0 {
            return nil
        }

        for _, dislike := range batch {
            report.DislikesScanned++
            afterID = dislike.ID

            exists, err := m.ledger.ExistsAt(ctx, dislike.SenderID, dislike.ReceiverID, InteractionDislike, dislike.CreatedAt)
            if err != nil {
                return err
            }
            if exists {
                report.Skipped++
                continue
            }

            rec := &InteractionHistory{
                ActorID:   dislike.SenderID,
                TargetID:  dislike.ReceiverID,
                Type:      InteractionDislike,
                CreatedAt: dislike.CreatedAt,
            }
            // Legacy dislikes carried a hard expiry. An already-expired row
            // arrives in the ledger as revoked at its expiry instant, so
            // history is preserved without resurrecting the exclusion.
            if dislike.ExpiresAt.Before(now) {
                expiredAt := dislike.ExpiresAt
                rec.IsRevoked = true
                rec.RevokedAt = &expiredAt
            }
            if err := m.ledger.InsertBackfill(ctx, rec); err != nil {
                if isUniqueViolation(err) {
                    report.Skipped++
                    continue
                }
                return err
            }
            report.DislikesMigrated++
        }
    }
}
