// Package audio turns ordered (speaker, text) segments into one playable WAV
// container.
//
// Each segment is synthesized by an external text-to-speech service, decoded
// into a Clip, separated from the next segment by a silence Clip, coerced to a
// shared 16-bit target format, and concatenated. Coercion is intentionally
// cheap: 24/32-bit sources are truncated, 8-bit sources re-centred, stereo is
// averaged to mono, and sample-rate conversion is nearest-neighbour with no
// interpolation. That fidelity loss is acceptable for speech and is part of
// the contract; do not swap in a different resampler without revisiting every
// caller's expectations about frame counts.
//
// Nothing here is persisted. Clips live for one Synthesize call.
package audio
