// Package viewer implements the dataset viewer controller: it fetches a named
// dataset, infers a display schema from the first row, mounts a renderer and
// forwards host export commands to the renderer's export handle.
//
// A controller runs one fetch cycle at a time. Every SetDataset starts a new
// cycle with a fresh generation; results that arrive for an older generation
// are dropped, so the published state always belongs to the latest request.
//
//	c := viewer.New(src, viewer.WithRenderer(g))
//	defer c.Close()
//
//	c.SetDataset("widgets")
//	st, _ := c.WaitSettled(ctx)
//	if st.Status == viewer.StatusLoaded {
//	    _ = c.ExportAs(ctx, viewer.FormatCSV)
//	}
package viewer
