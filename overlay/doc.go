// Package overlay promotes draw quads to hardware overlay planes.
//
// A [Processor] walks each render pass with its strategies in priority
// order. A strategy proposes candidates and the mutation that goes with
// them; the platform [Validator] marks the candidates it can present, and
// the pass is changed only when every proposed candidate was handled.
//
// Two strategies are provided. [SingleOnTop] lifts the topmost eligible
// quad that nothing visible covers onto a plane above the primary one and
// removes it from the pass. [Underlay] places an eligible quad on a plane
// below the primary one and replaces it with a transparent quad so the
// composited output lets the plane show through.
package overlay
