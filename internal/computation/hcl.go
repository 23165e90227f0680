package computation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// hclRootSchema expects exactly one 'computation' block per file.
type hclRootSchema struct {
	Computations []*hclComputation `hcl:"computation,block"`
	Remain       hcl.Body          `hcl:",remain"`
}

type hclComputation struct {
	Name        string    `hcl:"name,label"`
	Version     string    `hcl:"version"`
	Description string    `hcl:"description,optional"`
	Iterations  int       `hcl:"iterations,optional"`
	Input       cty.Value `hcl:"input,optional"`
	Local       *hclStep  `hcl:"local,block"`
	Remote      *hclStep  `hcl:"remote,block"`
	Remain      hcl.Body  `hcl:",remain"`
}

type hclStep struct {
	Type    string   `hcl:"type,optional"`
	Command string   `hcl:"command,optional"`
	Args    []string `hcl:"args,optional"`
	Handler string   `hcl:"handler,optional"`
	Remain  hcl.Body `hcl:",remain"`
}

// NewHCLLoader returns a Loader for manifests of the form:
//
//	computation "decentralized-test" {
//	  version = "1.0.0"
//	  local {
//	    command = "python"
//	    args    = ["./local.py"]
//	  }
//	}
func NewHCLLoader() Loader {
	return &fileLoader{format: "hcl", decode: decodeHCL}
}

func decodeHCL(_ context.Context, src []byte, path string) (*Computation, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse HCL file %s: %s", ErrInvalidManifest, path, diags.Error())
	}

	var root hclRootSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode %s: %s", ErrInvalidManifest, path, diags.Error())
	}
	if len(root.Computations) != 1 {
		return nil, fmt.Errorf("%w: %s must declare exactly one computation block, found %d", ErrInvalidManifest, path, len(root.Computations))
	}

	c := root.Computations[0]
	input, err := ctyToMap(c.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: input: %v", ErrInvalidManifest, path, err)
	}

	return &Computation{
		Name:        c.Name,
		Version:     c.Version,
		Description: c.Description,
		Iterations:  c.Iterations,
		Input:       input,
		Local:       c.Local.toStep(),
		Remote:      c.Remote.toStep(),
	}, nil
}

func (s *hclStep) toStep() *Step {
	if s == nil {
		return nil
	}
	return &Step{
		Type:    StepType(s.Type),
		Command: s.Command,
		Args:    s.Args,
		Handler: s.Handler,
	}
}

// ctyToMap converts an object-typed cty value into plain Go data by way of
// its JSON encoding.
func ctyToMap(v cty.Value) (map[string]any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value must be known at load time")
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", ty.FriendlyName())
	}
	raw, err := ctyjson.Marshal(v, ty)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
