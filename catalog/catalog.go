package catalog

import (
	"context"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/pkg/schema"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
	"golang.org/x/sync/errgroup"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "catalog")

// Aggregate lists the tools of every provider concurrently and merges them
// in provider order. When several providers offer the same tool name, the
// first one wins. A provider that fails, or panics, listing its tools is skipped.
func Aggregate(ctx context.Context, providers []tools.Entry) []tools.Descriptor {
	listed := make([][]tools.Descriptor, len(providers))

	var g errgroup.Group
	for i, e := range providers {
		g.Go(func() error {
			list, err := e.ListTools(ctx)
			if err != nil {
				logger.ContextKV(ctx, xlog.ERROR,
					"reason", "list_tools",
					"provider", e.Label,
					"err", err.Error())
				metricskey.StatsToolListFailed.IncrCounter(1, e.Label)
				return nil
			}
			listed[i] = list
			return nil
		})
	}
	_ = g.Wait()

	var res []tools.Descriptor
	seen := make(map[string]string)
	for i, list := range listed {
		label := providers[i].Label
		for _, d := range list {
			if owner, ok := seen[d.Name]; ok {
				logger.ContextKV(ctx, xlog.DEBUG,
					"status", "duplicate_tool",
					"tool", d.Name,
					"provider", label,
					"owner", owner)
				continue
			}
			seen[d.Name] = label
			res = append(res, d)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "aggregated",
		"providers", len(providers),
		"tools", len(res))

	return res
}

// ToModelTools converts descriptors to model function definitions.
// An empty list returns nil: no tools block is offered at all.
func ToModelTools(descs []tools.Descriptor) []llms.Tool {
	if len(descs) == 0 {
		return nil
	}

	res := make([]llms.Tool, 0, len(descs))
	for _, d := range descs {
		res = append(res, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  schema.CleanMap(d.InputSchema),
			},
		})
	}
	return res
}
