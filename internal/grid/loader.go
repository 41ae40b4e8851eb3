package grid

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/nodeweave/internal/channel"
	"github.com/vk/nodeweave/internal/ctxlog"
	"github.com/vk/nodeweave/internal/fsutil"
	"github.com/vk/nodeweave/internal/topologystore"
)

// Load reads every .hcl file under the given paths into one definition.
// Directories are walked recursively; missing paths are skipped.
func Load(ctx context.Context, paths ...string) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Grid loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	def := &Definition{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := decodeInto(ctx, def, hclFile, file); err != nil {
			return nil, err
		}
	}

	logger.Debug("Grid loading complete.", "nodes", len(def.Nodes), "connections", len(def.Connections), "targets", len(def.Targets))
	return def, nil
}

// Parse decodes a single grid held in memory. filename is used in
// diagnostics only.
func Parse(ctx context.Context, filename string, src []byte) (*Definition, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	def := &Definition{}
	if err := decodeInto(ctx, def, hclFile, filename); err != nil {
		return nil, err
	}
	return def, nil
}

func decodeInto(ctx context.Context, def *Definition, file *hcl.File, filename string) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	for _, nb := range root.Nodes {
		spec, err := translateNode(ctx, nb)
		if err != nil {
			return fmt.Errorf("in %s: %w", filename, err)
		}
		def.Nodes = append(def.Nodes, spec)
	}
	for _, cb := range root.Connects {
		spec, err := translateConnect(cb)
		if err != nil {
			return fmt.Errorf("in %s: %w", filename, err)
		}
		def.Connections = append(def.Connections, spec)
	}
	for _, eb := range root.Evaluate {
		def.Targets = append(def.Targets, eb.Targets...)
	}
	return nil
}

func translateNode(ctx context.Context, nb *nodeBlock) (NodeSpec, error) {
	spec := NodeSpec{Type: nb.Type, Name: nb.Name}
	if nb.UID != nil {
		spec.UID = *nb.UID
	}
	if !isExprDefined(ctx, nb.Params, "params") {
		return spec, nil
	}

	val, diags := nb.Params.Value(nil)
	if diags.HasErrors() {
		return spec, fmt.Errorf("invalid params for node '%s': %w", nb.Name, diags)
	}
	if val.IsNull() {
		return spec, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return spec, fmt.Errorf("params for node '%s' must be an object, got %s", nb.Name, val.Type().FriendlyName())
	}
	native, err := ctyToNative(val)
	if err != nil {
		return spec, fmt.Errorf("params for node '%s': %w", nb.Name, err)
	}
	spec.Params, _ = native.(map[string]any)
	return spec, nil
}

func translateConnect(cb *connectBlock) (ConnectionSpec, error) {
	spec := ConnectionSpec{
		From:        cb.From,
		To:          cb.To,
		FromChannel: channel.Flow,
		ToChannel:   channel.Flow,
		Index:       topologystore.UnorderedIndex,
	}
	if cb.FromChannel != nil {
		c, err := channel.Lookup(*cb.FromChannel)
		if err != nil {
			return spec, fmt.Errorf("connect %s -> %s: %w", cb.From, cb.To, err)
		}
		spec.FromChannel = c
	}
	if cb.ToChannel != nil {
		c, err := channel.Lookup(*cb.ToChannel)
		if err != nil {
			return spec, fmt.Errorf("connect %s -> %s: %w", cb.From, cb.To, err)
		}
		spec.ToChannel = c
	}
	if cb.Index != nil {
		if *cb.Index < 0 {
			return spec, fmt.Errorf("connect %s -> %s: index must not be negative, got %d", cb.From, cb.To, *cb.Index)
		}
		spec.Index = *cb.Index
	}
	return spec, nil
}

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder fills omitted optional expression fields with
// zero-width placeholders, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}
