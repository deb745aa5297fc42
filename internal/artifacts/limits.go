package artifacts

// MaxInlineBytes bounds how much raw tool output the tracker keeps inline on
// an Artifact before spilling it to a Store (§6). Tool outputs in this
// domain (structure dumps, DFT results) can run to megabytes; anything past
// this threshold is written out-of-line and referenced by RawOutputRef.
const MaxInlineBytes = 64 * 1024
