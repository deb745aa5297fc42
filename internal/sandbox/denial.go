package sandbox

import "strings"

// denialKeywords are matched case-insensitively against a sandboxed
// command's combined stdout+stderr to detect that confinement, rather than
// a genuine program error, caused the failure (§4.5).
var denialKeywords = []string{
	"operation not permitted",
	"permission denied",
	"read-only file system",
	"seccomp",
	"sandbox",
	"landlock",
	"failed to write file",
	"cannot create",
	"access denied",
	"not allowed",
}

// DetectDenial scans combined output for a denial keyword and returns the
// keyword that matched, or "" if none did.
func DetectDenial(combinedOutput string) (reason string, denied bool) {
	lower := strings.ToLower(combinedOutput)
	for _, kw := range denialKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// applyDenialDetection fills in Result.SandboxDenied/DenialReason from the
// combined stdout+stderr of an already-run command; it never overrides a
// reason a backend determined some other way (e.g. a SIGSYS exit code).
func applyDenialDetection(res *Result) {
	if res.SandboxDenied {
		return
	}
	reason, denied := DetectDenial(res.Stdout + "\n" + res.Stderr)
	res.SandboxDenied = denied
	res.DenialReason = reason
}
