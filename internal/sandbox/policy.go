package sandbox

// Level is the coarse disk/network access level a Policy grants (§4.5).
type Level string

const (
	// LevelNone places no restriction on disk or network access.
	LevelNone Level = "none"
	// LevelReadOnly allows reads anywhere but writes only to /dev/null.
	LevelReadOnly Level = "read_only"
	// LevelWorkspace allows reads anywhere and writes confined to the
	// policy's writable roots.
	LevelWorkspace Level = "workspace"
)

// Policy is the declarative confinement request passed to a Backend (§3).
type Policy struct {
	Level Level

	// WritableRoots are explicit directories the command may write inside,
	// in addition to its cwd and (if enabled) temp directories.
	WritableRoots []string

	// NetworkAccess permits outbound/inbound sockets when true. On Linux
	// this is enforced only by the optional seccomp filter; on macOS it is
	// enforced by the SBPL network allowlist.
	NetworkAccess bool

	// IncludeTmp adds /tmp to the effective writable roots.
	IncludeTmp bool
	// IncludeTmpDir adds $TMPDIR (if set) to the effective writable roots.
	IncludeTmpDir bool
}

// DefaultPolicy returns the most restrictive sensible policy: workspace
// writes only, no network.
func DefaultPolicy() Policy {
	return Policy{Level: LevelWorkspace, IncludeTmp: true, IncludeTmpDir: true}
}

// AllowsRead reports whether the policy grants unrestricted disk reads.
// Every level in this spec allows reads anywhere; only writes are
// restricted (§4.5's access table). The method exists so backends read
// intent from one place rather than re-deriving it from Level.
func (p Policy) AllowsRead() bool {
	return true
}

// AllowsWrites reports whether the policy permits any writable paths at
// all (read_only restricts writes to /dev/null only).
func (p Policy) AllowsWrites() bool {
	return p.Level != LevelReadOnly
}

// Unrestricted reports whether the policy imposes no confinement; callers
// use this to skip wrapping the command entirely.
func (p Policy) Unrestricted() bool {
	return p.Level == LevelNone || p.Level == ""
}
