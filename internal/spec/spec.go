package spec

// TransformationSpec declares one named transformation available to
// triggers.
type TransformationSpec struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"` // "uppercase", "template", …
	Options map[string]string `yaml:"options"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Transformations []TransformationSpec `yaml:"transformations"`

	// Pipeline is the ordered list of transformation names a pipeline
	// trigger runs.
	Pipeline []string `yaml:"pipeline"`
}
