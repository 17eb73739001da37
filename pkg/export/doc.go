// Package export delivers rendered dataset exports.
//
// A renderer builds an Artifact (CSV or spreadsheet bytes plus metadata) and hands
// it to a Pipeline. The pipeline optionally compresses the body with zstd, stamps
// an xxh3 checksum and puts the artifact into every configured Sink under the
// retry policy:
//
//	mem := export.NewMemorySink(32)
//	p, err := export.NewPipeline(cfg, export.WithSink(mem), export.WithSink(fileSink))
//	if err != nil {
//	    return err
//	}
//	ctx, rcpt := export.WithReceipt(ctx)
//	if err := controller.ExportAs(ctx, viewer.FormatCSV); err != nil {
//	    return err
//	}
//	if a := rcpt.Artifact(); a != nil {
//	    fmt.Println("exported", a.ID)
//	}
//
// A nil receipt artifact means the export was a no-op.
package export
