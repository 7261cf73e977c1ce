// Package viewskater is the core of a fast image viewer built for
// flipping through large directories of images at interactive rates.
//
// A Viewer owns a shared decode worker pool, a GPU texture atlas and up
// to two panes. Each pane navigates its own image collection through a
// small state machine (keyboard holds, slider drags) backed by a
// budgeted CPU cache window that prefetches around the current image in
// the direction of travel. Decoded images are packed into atlas layers,
// optionally block-compressed, and evicted by visibility recency.
//
// The replay sub-package drives a Viewer deterministically for
// benchmarking: synthesized keyboard or slider navigation at a fixed
// interval, frame rate and memory sampling, and JSON or markdown
// reports.
//
// Basic use:
//
//	v := viewskater.NewViewer(viewskater.DefaultConfig(), nil)
//	defer v.Close()
//	if err := v.LoadDirectory("/photos/shoot-01"); err != nil {
//		log.Fatal(err)
//	}
//	for running {
//		// feed input events, then once per frame:
//		for _, item := range v.FrameTick() {
//			draw(item)
//		}
//	}
package viewskater
