package main

import (
	"bytes"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

// loadProfile reads a target profile from a YAML (or JSON) file.
// Unknown keys are rejected so typos do not silently widen targeting.
func loadProfile(path string) (model.TargetProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.TargetProfile{}, eris.Wrapf(err, "read profile %s", path)
	}
	return parseProfile(data)
}

func parseProfile(data []byte) (model.TargetProfile, error) {
	var p model.TargetProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return model.TargetProfile{}, eris.Wrap(err, "parse profile")
	}
	return p, nil
}
