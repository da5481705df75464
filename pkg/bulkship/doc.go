// Package bulkship groups newline-separated commands arriving on many
// independent connections into blocks and fans every block out to a logging
// sink and to block files.
//
// # Basic Usage
//
//	reg, err := bulkship.New(bulkship.Config{FileWorkers: 2, OutputDir: "/var/lib/bulkship"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close()
//
//	h, err := reg.Connect(3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reg.Receive(h, []byte("cmd1\ncmd2\ncmd3\n"))
//	reg.Disconnect(h)
//
// # Block Segmentation
//
// Commands are grouped into static blocks of the size passed to
// [Registry.Connect]. A line containing only "{" starts a dynamic block that
// lasts until the matching "}"; dynamic blocks ignore the block size and may
// nest. A dynamic block still open at disconnect is discarded.
//
// # Outputs
//
// Each connection owns one logging worker, which writes blocks in order as
// "[<id>] bulk: a, b, c" to the configured sink, and a pool of file workers,
// which write one file per block into OutputDir. On disconnect the connection
// drains both pools and writes a single metrics report to the sink.
//
// # Concurrency
//
// All Registry methods are safe for concurrent use. Receive on one handle
// does not block Receive on another beyond a short map lookup.
package bulkship
