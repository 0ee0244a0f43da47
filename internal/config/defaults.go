package config

func applyDefaults(spec *Spec) {
	if len(spec.ShellCmd) == 0 {
		spec.ShellCmd = []string{"sh", "-c"}
	}
	if spec.DefaultTotalTimeoutMS < 0 {
		spec.DefaultTotalTimeoutMS = 0
	}
	if spec.DefaultChunkTimeoutMS < 0 {
		spec.DefaultChunkTimeoutMS = 0
	}
	for label, child := range spec.Children {
		if child.Label == "" {
			child.Label = label
		}
		if child.ReadChunkSize <= 0 {
			child.ReadChunkSize = 4096
		}
		spec.Children[label] = child
	}
}
