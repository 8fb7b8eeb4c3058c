// Package kv provides the raw storage areas behind the two tiers.
//
// # Overview
//
// Every area implements Repository, a flat byte-valued key/value contract.
// Areas know nothing about tiers, quotas or documents; the storage package
// layers those on top.
//
// Implementations
//
//   - SQLiteRepository  : Local tier, a single SQLite file (modernc.org/sqlite)
//   - PostgresRepository: synced tier shared by several browsers (pgx)
//   - S3Repository      : synced tier on S3-compatible object storage, one object per key
//   - MemoryRepository  : in-process area for tests and the "memory" sync backend
//
// SQL areas also implement QuotaSetter so the quota check and the write
// happen in one transaction.
//
// Typical Usage
//
//	db, _ := kv.OpenSQLite(ctx, cfg.LocalDSN())
//	local := kv.NewSQLiteRepository(db)
//	_ = local.Set(ctx, "homepageData", raw)
//	raw, _ = local.Get(ctx, "homepageData") // (nil, nil) when absent
package kv
