// Package pagination drives the sequential page loop over the aanbod API.
//
// The API reports its total page count in the "_metadata" block of every
// response. The collector starts with a bound of one page, fetches page 0,
// and from then on re-reads the bound from the latest response, so the
// number of pages fetched is min(page_count, MaxPages). The bound may grow
// or shrink between pages; the latest reported value always wins.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(settings.Limit))
//	collector := pagination.NewCollector(c, sink, pagination.Config{MaxPages: settings.MaxPages})
//	result, err := collector.Run(ctx)
//
// The collector:
//   - Fetches one page at a time, never in parallel
//   - Normalizes and pushes every item before requesting the next page
//   - Counts records with missing optional fields
//   - Aborts on the first fetch or sink error, keeping earlier records in the sink
package pagination
