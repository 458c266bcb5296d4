// Package evictgo provides resource-pressure-triggered eviction for
// RAG-style artifact stores.
//
// An artifact is a previously ingested file plus its optional derived vector
// embeddings. Artifacts live in three independent backing stores: a metadata
// catalog (the authoritative existence marker), a vector index, and a blob
// store. When measured memory or OS cache pressure crosses a configurable
// threshold, evictgo reclaims space by deleting the least-recently-created
// artifacts across all three stores in a best-effort, partial-failure-tolerant
// cascade.
//
// # Quick Start
//
//	cat, _ := catalog.OpenSQLite("./catalog.db")
//	idx := vectorindex.NewMemoryIndex()
//	blobs, _ := blobstore.NewLocalStore("./blobs")
//
//	mgr, err := evictgo.New(cat, idx, blobs,
//	    evictgo.WithThreshold(0.70),
//	    evictgo.WithSettleDelay(2*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	mgr.StartSampling()
//
//	// Invoke from a timer, cron, or request handler.
//	report, err := mgr.CheckAndReclaim(ctx)
//	if report != nil {
//	    fmt.Printf("evicted %d artifacts, freed %.2f%%\n",
//	        report.CleanedCount, report.FreedFraction*100)
//	}
//
// # Eviction Model
//
// Victims are selected strictly oldest-first by creation time. There is no
// access-time tracking and no size- or frequency-based prioritization. The
// per-artifact cascade deletes index documents, then the emptied index
// collection, then the blob, and the catalog entry last; only a failed
// catalog delete marks a cascade as failed. See package reclaim for the
// partial-failure semantics.
//
// # Sampling
//
// The background sampler is an advisory companion: it periodically measures
// process RSS and goroutine count, logs warnings above static limits, and
// exposes the latest sample. It never triggers eviction.
//
// # Backing Stores
//
// Catalog: in-memory, SQLite (modernc.org/sqlite), or DynamoDB. Blob store:
// in-memory, local filesystem, MinIO, or S3. The vector index ships with an
// in-memory implementation; production deployments adapt their index engine
// to the four-method vectorindex.Index interface.
package evictgo
