// Package compositor ties the GPU resource and overlay compositing core
// together for one GPU context.
//
// # Overview
//
// A [Context] owns the per-context state of the compositor:
//   - a resource [resource.Registry] with fenced, reference-counted releases
//   - a texture [texture.Manager] tracking completeness and renderability
//   - a video [video.Updater] turning decoded frames into resources
//   - an overlay [overlay.Processor] promoting quads to hardware planes
//
// # Quick Start
//
//	ctx, err := compositor.NewContext(
//	    compositor.WithSoftware(),
//	    compositor.WithValidator(overlay.PlaneValidator{MaxOverlays: 1}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	frame, err := ctx.DecodeFrame(data)
//	if err != nil {
//	    return err
//	}
//	planes, err := ctx.DrawFrame(frame)
//	...
//	ctx.DidSwap(planes)
//
// # GPU and software compositing
//
// Without a device the context composites in software: resources are CPU
// bitmaps and video frames are converted to RGBA. [WithDevice] or [WithHAL]
// switch to GPU textures, GPU YUV planes and timeline fences.
//
// # Threading
//
// A Context is driven from a single compositor goroutine. Fence completion
// runs on the goroutine started by [Context.Run] and only touches the
// registry's release bookkeeping.
//
// # Logging
//
// The compositor is silent by default. Call [SetLogger] to route the
// diagnostics of every sub-package to one [log/slog] logger.
package compositor
