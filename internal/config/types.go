// Package config loads a YAML document describing the set of children
// cmd/procdrive should supervise. Adapted from internal/config/types.go
// and internal/config/config.go in this module's teacher repository,
// trimmed from a TUI-styling-heavy schema down to the fields that map
// onto child.Option.
package config

// ChildSpec describes one supervised child, as loaded from YAML.
type ChildSpec struct {
	Label string `yaml:"label"`

	// Exactly one of Shell or Cmd should be set. Shell is run through
	// ShellCmd (or "sh -c" if that is empty); Cmd is used verbatim.
	Shell string   `yaml:"shell"`
	Cmd   []string `yaml:"cmd"`

	Cwd           string            `yaml:"cwd"`
	Env           map[string]string `yaml:"env"`
	StdinTerminal bool              `yaml:"stdin_terminal"`
	ReadChunkSize int               `yaml:"read_chunk_size"`

	ChunkTimeoutMS int `yaml:"chunk_timeout_ms"`
	TotalTimeoutMS int `yaml:"total_timeout_ms"`
}

// Spec is the top-level document: a named shell override and the list of
// children to supervise.
type Spec struct {
	ShellCmd []string             `yaml:"shell_cmd"`
	Children map[string]ChildSpec `yaml:"children"`

	DefaultChunkTimeoutMS int `yaml:"default_chunk_timeout_ms"`
	DefaultTotalTimeoutMS int `yaml:"default_total_timeout_ms"`
}
