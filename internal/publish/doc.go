// Package publish pushes verified release bundles to GitHub Releases
// through the REST API: one release per tag, bundle files attached as
// assets in sorted order.
package publish
